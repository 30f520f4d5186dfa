package lesst

import (
	"context"
)

// SectionOptions describes one titled group of test cases.
type SectionOptions struct {
	Title  string
	Stdout bool
	Stderr bool
	// Analysis prints the summary report after the run.
	Analysis bool
}

// Section builds a TestFlow, lets fn register cases on it, runs them and
// returns the report. Extra FlowOptions are applied after the display
// settings derived from opts.
func Section(ctx context.Context, opts SectionOptions, fn func(f *TestFlow) error, flowOpts ...FlowOption) (*Report, error) {
	all := append([]FlowOption{WithDisplay(opts.Stdout, opts.Stderr)}, flowOpts...)
	flow := NewTestFlow(all...)
	printer := flow.opts.printer

	if opts.Title == "" {
		printer.Error("Section test must have a title", nil)
		return nil, ErrMissingTitle
	}
	printer.Section(opts.Title)

	if fn != nil {
		if err := fn(flow); err != nil {
			return nil, err
		}
	}

	if _, err := flow.Start(ctx); err != nil {
		return flow.Report(), err
	}

	var report *Report
	if opts.Analysis {
		report = flow.Analyse()
	} else {
		report = flow.Report()
	}

	printer.Complete()
	return report, nil
}
