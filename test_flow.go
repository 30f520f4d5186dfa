package lesst

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/muesli/termenv"

	"go.alt-gnome.ru/lesst/internal/logging"
	"go.alt-gnome.ru/lesst/providers"
	"go.alt-gnome.ru/lesst/providers/local"
)

// Callback scripts one test case against its driver. Returning an error
// stops the whole run; failed assertions are recorded on the driver instead.
type Callback func(ctx context.Context, c *Cmder) error

// Hook runs at a fixed point of TestFlow.Start. An error is fatal to the run.
type Hook func(ctx context.Context, f *TestFlow) error

type TestCase struct {
	Description string
	Cmd         CmdSpec
	Callback    Callback
}

func (tc TestCase) validate() error {
	if tc.Description == "" {
		return ErrEmptyDescription
	}
	if tc.Callback == nil {
		return fmt.Errorf("test %q: %w", tc.Description, ErrNilCallback)
	}
	return nil
}

// CaseOutcome is reported to an Observer after every case.
type CaseOutcome struct {
	Index       int
	Description string
	Failed      bool
	Notes       int
	Duration    time.Duration
}

// Observer is notified as cases complete.
type Observer interface {
	CaseFinished(o CaseOutcome)
}

type flowOptions struct {
	stdout       bool
	stderr       bool
	printer      Printer
	logger       *slog.Logger
	provider     providers.Provider
	observer     Observer
	pollInterval time.Duration
}

// FlowOption configures a TestFlow.
type FlowOption func(*flowOptions)

// WithDisplay echoes child output and per-case labels; stderr additionally
// echoes the child's error stream.
func WithDisplay(stdout, stderr bool) FlowOption {
	return func(o *flowOptions) {
		o.stdout = stdout
		o.stderr = stderr
	}
}

func WithPrinter(p Printer) FlowOption {
	return func(o *flowOptions) { o.printer = p }
}

func WithLogger(l *slog.Logger) FlowOption {
	return func(o *flowOptions) { o.logger = l }
}

func WithProvider(p providers.Provider) FlowOption {
	return func(o *flowOptions) { o.provider = p }
}

func WithObserver(obs Observer) FlowOption {
	return func(o *flowOptions) { o.observer = obs }
}

// WithPollInterval sets the WaitFor polling interval of every driver.
func WithPollInterval(d time.Duration) FlowOption {
	return func(o *flowOptions) { o.pollInterval = d }
}

func noopHook(context.Context, *TestFlow) error { return nil }

// TestFlow runs test cases one after another, each against a fresh Cmder,
// and collects the failures they record.
type TestFlow struct {
	opts    flowOptions
	flow    []TestCase
	results RunResult

	beforeAllFn  Hook
	beforeEachFn Hook
	afterAllFn   Hook
	afterEachFn  Hook
}

func NewTestFlow(opts ...FlowOption) *TestFlow {
	o := flowOptions{
		logger:       logging.NewNop(),
		pollInterval: defaultPollInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.printer == nil {
		o.printer = NewConsolePrinter(os.Stdout, termenv.EnvColorProfile())
	}
	if o.provider == nil {
		o.provider = local.Provider()
	}
	return &TestFlow{
		opts:         o,
		beforeAllFn:  noopHook,
		beforeEachFn: noopHook,
		afterAllFn:   noopHook,
		afterEachFn:  noopHook,
	}
}

// Test registers a case. It fails immediately on an empty description or a
// nil callback.
func (f *TestFlow) Test(desc string, cmd CmdSpec, callback Callback) error {
	tc := TestCase{Description: desc, Cmd: cmd, Callback: callback}
	if err := tc.validate(); err != nil {
		return err
	}
	f.flow = append(f.flow, tc)
	return nil
}

// Feed is an alias of Test.
func (f *TestFlow) Feed(desc string, cmd CmdSpec, callback Callback) error {
	return f.Test(desc, cmd, callback)
}

// Series appends pre-built cases in order. Nothing is appended if any of
// them is invalid.
func (f *TestFlow) Series(cases []TestCase) error {
	for i, tc := range cases {
		if err := tc.validate(); err != nil {
			return fmt.Errorf("series case %d: %w", i+1, err)
		}
	}
	f.flow = append(f.flow, cases...)
	return nil
}

// Cases returns the registered cases in order.
func (f *TestFlow) Cases() []TestCase {
	return slices.Clone(f.flow)
}

func hookOrNoop(fn Hook) Hook {
	if fn == nil {
		return noopHook
	}
	return fn
}

func (f *TestFlow) BeforeAll(fn Hook)  { f.beforeAllFn = hookOrNoop(fn) }
func (f *TestFlow) BeforeEach(fn Hook) { f.beforeEachFn = hookOrNoop(fn) }
func (f *TestFlow) AfterAll(fn Hook)   { f.afterAllFn = hookOrNoop(fn) }
func (f *TestFlow) AfterEach(fn Hook)  { f.afterEachFn = hookOrNoop(fn) }

// display is the printer for per-case chatter, silent unless stdout display
// is on.
func (f *TestFlow) display() Printer {
	if f.opts.stdout {
		return f.opts.printer
	}
	return NopPrinter{}
}

// Start runs every registered case in order. A callback or hook error stops
// the run and is returned as a *FatalError together with what was collected
// so far. Cancelling ctx stops the run between cases.
func (f *TestFlow) Start(ctx context.Context) (*RunResult, error) {
	f.results = RunResult{Total: len(f.flow)}

	if err := f.beforeAllFn(ctx, f); err != nil {
		return f.fatal(&FatalError{Description: "beforeAll", Err: err})
	}
	for i, tc := range f.flow {
		if err := ctx.Err(); err != nil {
			f.results.Aborted = true
			return f.snapshot(), err
		}
		if err := f.runCase(ctx, i+1, tc); err != nil {
			return f.fatal(err)
		}
	}
	if err := f.afterAllFn(ctx, f); err != nil {
		return f.fatal(&FatalError{Description: "afterAll", Err: err})
	}
	return f.snapshot(), nil
}

func (f *TestFlow) runCase(ctx context.Context, index int, tc TestCase) *FatalError {
	disp := f.display()
	spec := tc.Cmd.With(WithStdout(f.opts.stdout), WithStderr(f.opts.stderr))
	cmder := NewCmder(ctx, spec,
		WithCmderProvider(f.opts.provider),
		WithCmderPrinter(f.opts.printer),
		WithCmderLogger(f.opts.logger),
		WithCmderPollInterval(f.opts.pollInterval),
	)

	disp.CaseStart(index, tc.Description)
	f.opts.logger.Debug("running test", "index", index, "desc", tc.Description, "cmd", spec.String())

	if err := f.beforeEachFn(ctx, f); err != nil {
		return &FatalError{Index: index, Description: tc.Description, Err: fmt.Errorf("beforeEach: %w", err)}
	}

	f.results.Ran++
	start := time.Now()
	cbErr := f.invoke(ctx, tc.Callback, cmder)
	elapsed := time.Since(start)

	// Notes recorded before an abort still belong to the report.
	notes := cmder.Failures()
	failed := len(notes) > 0 || cbErr != nil
	if failed {
		f.results.Failed = append(f.results.Failed, FailedCase{
			Index:       index,
			Description: tc.Description,
			Notes:       notes,
			Aborted:     cbErr != nil,
		})
	}
	disp.CaseEnd(index, tc.Description, failed)
	if f.opts.observer != nil {
		f.opts.observer.CaseFinished(CaseOutcome{
			Index:       index,
			Description: tc.Description,
			Failed:      failed,
			Notes:       len(notes),
			Duration:    elapsed,
		})
	}
	if cbErr != nil {
		return &FatalError{Index: index, Description: tc.Description, Err: cbErr}
	}

	if err := f.afterEachFn(ctx, f); err != nil {
		return &FatalError{Index: index, Description: tc.Description, Err: fmt.Errorf("afterEach: %w", err)}
	}
	return nil
}

// invoke runs the callback and always closes the driver afterwards, even
// when the callback panics.
func (f *TestFlow) invoke(ctx context.Context, cb Callback, cmder *Cmder) (err error) {
	defer func() {
		if cerr := cmder.Close(); cerr != nil {
			f.opts.logger.Debug("close failed", "error", cerr)
		}
	}()
	if err := cb(ctx, cmder); err != nil {
		return err
	}
	return cmder.Err()
}

func (f *TestFlow) fatal(err *FatalError) (*RunResult, error) {
	f.results.Aborted = true
	f.opts.logger.Error("test flow aborted", "error", err)
	f.opts.printer.Error("Test flow aborted:", err)
	return f.snapshot(), err
}

func (f *TestFlow) snapshot() *RunResult {
	r := f.results
	r.Failed = slices.Clone(r.Failed)
	return &r
}

// Report summarises the registered cases against the last run. After an
// abort only the cases that ran without failures count as passed.
func (f *TestFlow) Report() *Report {
	failed := slices.Clone(f.results.Failed)
	if f.results.Aborted {
		return newAbortedReport(len(f.flow), f.results.Ran, failed)
	}
	return newReport(len(f.flow), failed)
}

// Analyse builds the report and prints it.
func (f *TestFlow) Analyse() *Report {
	r := f.Report()
	f.opts.printer.Summary(r)
	return r
}
