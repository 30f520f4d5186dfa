package lesst

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"go.alt-gnome.ru/lesst/internal/helper"
	"go.alt-gnome.ru/lesst/internal/logging"
	"go.alt-gnome.ru/lesst/providers"
	"go.alt-gnome.ru/lesst/providers/local"
)

const (
	defaultTimeout      = 3 * time.Second
	defaultPollInterval = 100 * time.Millisecond
	dataPollInterval    = 10 * time.Millisecond
	closeDrainTimeout   = time.Second
)

// FailureRecord is the evidence kept for one failed assertion.
type FailureRecord struct {
	Cmd  string
	Args []string
	// Stdout is the stdout buffer at the moment of the assertion.
	Stdout string
	// Stdin is the last line written with WriteIn since the last Keep.
	Stdin   string
	Message string
}

// CommandLine renders the command the failure came from.
func (f FailureRecord) CommandLine() string {
	return helper.CmdStringify(f.Cmd, f.Args)
}

// Cmder drives one child process through a scripted interaction. Output is
// accumulated in the background; waits poll the buffers and assertions read
// them synchronously.
//
// Every method except Failures, Close and the accessors returns the receiver
// so steps can be chained.
type Cmder struct {
	ctx          context.Context
	spec         CmdSpec
	provider     providers.Provider
	printer      Printer
	logger       *slog.Logger
	pollInterval time.Duration
	prompt       string

	mu       sync.Mutex
	session  providers.InteractiveSession
	begun    bool
	chunkOut strings.Builder
	chunkErr strings.Builder
	chunkIn  string
	channel  Channel
	failed   []FailureRecord
	matched  bool
	err      error
	drained  chan struct{}
}

// CmderOption configures a Cmder created by NewCmder.
type CmderOption func(*Cmder)

func WithCmderProvider(p providers.Provider) CmderOption {
	return func(c *Cmder) { c.provider = p }
}

// WithCmderPrinter sets the sink for echoed output and failure lines. It is
// only used when the CmdSpec enables stdout display.
func WithCmderPrinter(p Printer) CmderOption {
	return func(c *Cmder) { c.printer = p }
}

func WithCmderLogger(l *slog.Logger) CmderOption {
	return func(c *Cmder) { c.logger = l }
}

// WithCmderPollInterval overrides the WaitFor polling interval.
func WithCmderPollInterval(d time.Duration) CmderOption {
	return func(c *Cmder) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// NewCmder prepares a driver for spec. Nothing is spawned until Begin. ctx
// bounds every wait; cancelling it makes pending waits return at once.
func NewCmder(ctx context.Context, spec CmdSpec, opts ...CmderOption) *Cmder {
	c := &Cmder{
		ctx:          ctx,
		spec:         spec,
		provider:     local.Provider(),
		printer:      NopPrinter{},
		logger:       logging.NewNop(),
		pollInterval: defaultPollInterval,
		channel:      Stdout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !spec.opts.Stdout {
		c.printer = NopPrinter{}
	}
	if wd, err := os.Getwd(); err == nil {
		c.prompt = fmt.Sprintf("PS %s> ", wd)
	}
	return c
}

// Begin spawns the process on first use and starts collecting its output.
// Later calls do nothing.
func (c *Cmder) Begin() *Cmder {
	c.mu.Lock()
	if c.begun {
		c.mu.Unlock()
		return c
	}
	c.begun = true
	c.mu.Unlock()

	sess, err := c.provider.StartCommand(c.spec.command())
	if err != nil {
		c.setErr(fmt.Errorf("begin %q: %w", c.spec.String(), err))
		return c
	}
	c.logger.Debug("process started", "cmd", c.spec.String())

	c.mu.Lock()
	c.session = sess
	c.drained = make(chan struct{})
	c.mu.Unlock()

	c.printer.Command(c.prompt + c.spec.String())

	var listeners sync.WaitGroup
	listeners.Add(2)
	go c.listen(&listeners, Stdout, sess.Stdout())
	go c.listen(&listeners, Stderr, sess.Stderr())
	go func() {
		listeners.Wait()
		close(c.drained)
	}()
	return c
}

func (c *Cmder) listen(wg *sync.WaitGroup, ch Channel, chunks <-chan string) {
	defer wg.Done()
	for chunk := range chunks {
		c.mu.Lock()
		if ch == Stderr {
			c.chunkErr.WriteString(chunk)
		} else {
			c.chunkOut.WriteString(chunk)
		}
		c.mu.Unlock()
		if ch == Stdout || c.spec.opts.Stderr {
			c.printer.Echo(ch, chunk)
		}
	}
}

// Keep clears both output buffers and the last input, so later checks only
// see what the process produces from now on.
func (c *Cmder) Keep() *Cmder {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.chunkOut.Reset()
	c.chunkErr.Reset()
	c.chunkIn = ""
	return c
}

// SelectChannel chooses the buffer WaitFor inspects. The default is Stdout.
func (c *Cmder) SelectChannel(ch Channel) *Cmder {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch == Stdout || ch == Stderr {
		c.channel = ch
	}
	return c
}

// ActiveChannel returns the buffer WaitFor currently inspects.
func (c *Cmder) ActiveChannel() Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.channel
}

// WriteIn sends text followed by a newline. Writes to a process that is not
// accepting input are dropped.
func (c *Cmder) WriteIn(text string) *Cmder {
	c.mu.Lock()
	c.chunkIn = text
	c.mu.Unlock()

	input := text + "\n"
	if c.write([]byte(input)) {
		c.printer.Input(input)
	}
	return c
}

// WriteKey sends raw key sequences, e.g. KeyDown, without a newline.
func (c *Cmder) WriteKey(keys ...Key) *Cmder {
	for _, k := range keys {
		c.write(k.Bytes())
	}
	return c
}

// Enter sends a bare newline.
func (c *Cmder) Enter() *Cmder {
	c.write(KeyEnter.Bytes())
	return c
}

func (c *Cmder) write(data []byte) bool {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		c.logger.Debug("write dropped: process not started", "cmd", c.spec.String())
		return false
	}
	if err := sess.Write(data); err != nil {
		c.logger.Debug("write dropped", "cmd", c.spec.String(), "error", err)
		return false
	}
	return true
}

// Wait sleeps for d (default 3s) without looking at the output.
func (c *Cmder) Wait(d ...time.Duration) *Cmder {
	_ = helper.Delay(c.ctx, durationOr(d))
	return c
}

// WaitForData polls until stdout is non-empty or the timeout (default 3s)
// elapses. Either way the driver is returned; Matched tells which happened.
func (c *Cmder) WaitForData(timeout ...time.Duration) *Cmder {
	return c.poll("data", durationOr(timeout), min(dataPollInterval, c.pollInterval), func() bool {
		return c.Output(Stdout) != ""
	})
}

// WaitFor polls the active channel until target matches or the timeout
// (default 3s) elapses. A target that cannot be evaluated (nil predicate,
// invalid pattern) fails the driver, see Err.
func (c *Cmder) WaitFor(target Target, timeout ...time.Duration) *Cmder {
	if err := target.Err(); err != nil {
		c.setMatched(false)
		c.setErr(err)
		return c
	}
	return c.poll(target.String(), durationOr(timeout), c.pollInterval, func() bool {
		return target.Match(c.Output(c.ActiveChannel()))
	})
}

// WaitExit polls until the process has exited or the timeout elapses.
func (c *Cmder) WaitExit(timeout ...time.Duration) *Cmder {
	return c.poll("exit", durationOr(timeout), min(dataPollInterval, c.pollInterval), c.Exited)
}

func (c *Cmder) poll(what string, timeout, interval time.Duration, cond func() bool) *Cmder {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			c.setMatched(true)
			return c
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if err := helper.Delay(c.ctx, min(interval, remaining)); err != nil {
			break
		}
	}
	c.setMatched(false)
	c.logger.Debug("wait gave up", "cmd", c.spec.String(), "for", what, "timeout", timeout)
	return c
}

// Matched reports whether the condition of the most recent WaitForData,
// WaitFor or WaitExit held before its timeout.
func (c *Cmder) Matched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.matched
}

func (c *Cmder) setMatched(v bool) {
	c.mu.Lock()
	c.matched = v
	c.mu.Unlock()
}

// Assert runs fn against the current stdout and stderr buffers. A returned
// error is recorded as a FailureRecord and the scenario carries on. A nil fn
// is a programming error and panics.
func (c *Cmder) Assert(fn AssertFunc) *Cmder {
	if fn == nil {
		panic("lesst: Assert: " + ErrNilPredicate.Error())
	}
	c.mu.Lock()
	stdout, stderr := c.chunkOut.String(), c.chunkErr.String()
	c.mu.Unlock()

	if err := fn(stdout, stderr); err != nil {
		c.recordFailure(stdout, err.Error())
	}
	return c
}

// AssertExitCode records a failure unless the process has exited with code.
func (c *Cmder) AssertExitCode(code int) *Cmder {
	c.mu.Lock()
	stdout := c.chunkOut.String()
	c.mu.Unlock()

	actual, exited := c.ExitCode()
	switch {
	case !exited:
		c.recordFailure(stdout, fmt.Sprintf("process has not exited, want exit code %d", code))
	case actual != code:
		c.recordFailure(stdout, fmt.Sprintf("unexpected exit code: got %d, want %d", actual, code))
	}
	return c
}

func (c *Cmder) recordFailure(stdout, message string) {
	message = strings.TrimSpace(message)
	c.mu.Lock()
	c.failed = append(c.failed, FailureRecord{
		Cmd:     c.spec.cmd,
		Args:    slices.Clone(c.spec.args),
		Stdout:  stdout,
		Stdin:   c.chunkIn,
		Message: message,
	})
	c.mu.Unlock()
	c.printer.AssertionFailed(message)
}

// Failures returns a copy of the failures recorded so far.
func (c *Cmder) Failures() []FailureRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.failed)
}

// Interrupt sends SIGINT to the process, as Ctrl-C on a terminal would.
func (c *Cmder) Interrupt() *Cmder {
	c.mu.Lock()
	sess := c.session
	c.mu.Unlock()
	if sess == nil {
		return c
	}
	if err := sess.Interrupt(); err != nil {
		c.logger.Debug("interrupt failed", "cmd", c.spec.String(), "error", err)
	}
	return c
}

// Output returns the current content of a channel buffer.
func (c *Cmder) Output(ch Channel) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ch == Stderr {
		return c.chunkErr.String()
	}
	return c.chunkOut.String()
}

// Exited reports whether the process has terminated.
func (c *Cmder) Exited() bool {
	_, exited := c.ExitCode()
	return exited
}

// ExitCode returns the exit code once the process has terminated. By then
// all of its output is in the buffers.
func (c *Cmder) ExitCode() (int, bool) {
	c.mu.Lock()
	sess, drained := c.session, c.drained
	c.mu.Unlock()
	if sess == nil {
		return -1, false
	}
	code, exited := sess.Exited()
	if exited {
		select {
		case <-drained:
		case <-time.After(closeDrainTimeout):
		}
	}
	return code, exited
}

// Err returns the first error that prevented the driver from doing its job,
// such as a failed spawn or an unusable wait target.
func (c *Cmder) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *Cmder) setErr(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.logger.Debug("driver error", "cmd", c.spec.String(), "error", err)
}

// Close kills the process if one was started. The outcome is returned and
// logged; callers are free to ignore it.
func (c *Cmder) Close() error {
	c.mu.Lock()
	sess, drained := c.session, c.drained
	c.mu.Unlock()
	if sess == nil {
		return nil
	}
	if err := sess.Kill(); err != nil {
		c.logger.Error("child process termination failed", "cmd", c.spec.String(), "error", err)
		c.printer.Error("Child process termination failed:", err)
		return fmt.Errorf("close %q: %w", c.spec.String(), err)
	}
	select {
	case <-drained:
	case <-time.After(closeDrainTimeout):
		c.logger.Debug("output still open after kill", "cmd", c.spec.String())
	}
	return nil
}

// durationOr picks the optional duration argument, 3s when omitted.
func durationOr(d []time.Duration) time.Duration {
	if len(d) == 0 {
		return defaultTimeout
	}
	return max(d[0], 0)
}
