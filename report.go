package lesst

import (
	"fmt"
	"math"
	"strings"
)

// FailedCase groups the failures of one test case.
type FailedCase struct {
	// Index is the 1-based registration position of the case.
	Index       int
	Description string
	Notes       []FailureRecord
	// Aborted marks the case whose callback stopped the run.
	Aborted bool
}

// RunResult is what Start collected.
type RunResult struct {
	Total int
	// Ran counts the cases whose callback was invoked.
	Ran     int
	Aborted bool
	Failed  []FailedCase
}

// Report summarises a run. Cases that never ran because the run was
// aborted count as not passed.
type Report struct {
	Total  int
	Ran    int
	Passed int
	// PassRate is a percentage rounded to two decimals.
	PassRate float64
	Aborted  bool
	Failed   []FailedCase
}

func newReport(total int, failed []FailedCase) *Report {
	r := &Report{
		Total:    total,
		Ran:      total,
		Passed:   total - len(failed),
		PassRate: 100,
		Failed:   failed,
	}
	if len(failed) > 0 {
		r.PassRate = passRate(total, len(failed))
	}
	return r
}

func newAbortedReport(total, ran int, failed []FailedCase) *Report {
	passed := ran - len(failed)
	r := &Report{
		Total:   total,
		Ran:     ran,
		Passed:  passed,
		Aborted: true,
		Failed:  failed,
	}
	if total > 0 {
		r.PassRate = passRate(total, total-passed)
	}
	return r
}

func passRate(total, failed int) float64 {
	rate := (1 - float64(failed)/float64(total)) * 100
	return math.Round(rate*100) / 100
}

func (r *Report) AllPassed() bool {
	return len(r.Failed) == 0 && !r.Aborted
}

// Notes counts failure records across all failed cases.
func (r *Report) Notes() int {
	n := 0
	for _, fc := range r.Failed {
		n += len(fc.Notes)
	}
	return n
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# Test report\n\n")
	if r.AllPassed() {
		fmt.Fprintf(&b, "**%d / %d passed**, pass rate is 100%%\n", r.Passed, r.Total)
		return b.String()
	}
	fmt.Fprintf(&b, "**%d / %d passed**, pass rate is %.2f%%\n", r.Passed, r.Total, r.PassRate)
	if r.Aborted {
		fmt.Fprintf(&b, "\n**Run aborted after %d of %d tests**\n", r.Ran, r.Total)
	}
	for _, fc := range r.Failed {
		title := fc.Description
		if fc.Aborted {
			title += " (aborted)"
		}
		fmt.Fprintf(&b, "\n## Test.%d %s\n", fc.Index, title)
		for i, note := range fc.Notes {
			fmt.Fprintf(&b, "\n### Assert.%d\n\n", i+1)
			fmt.Fprintf(&b, "Command: `%s`\n\n", note.CommandLine())
			fmt.Fprintf(&b, "```\n%s\n```\n", note.Message)
		}
	}
	return b.String()
}
