package lesst

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"go.alt-gnome.ru/lesst/internal/format"
	"go.alt-gnome.ru/lesst/internal/helper"
)

// Printer receives the events of a run: banners, per-case labels and
// outcomes, echoed child output and the final report. Implementations must
// be safe for concurrent use; echoed output arrives from reader goroutines.
type Printer interface {
	Section(title string)
	// Command announces the command line a driver just started.
	Command(line string)
	Echo(ch Channel, chunk string)
	Input(line string)
	CaseStart(index int, description string)
	CaseEnd(index int, description string, failed bool)
	AssertionFailed(message string)
	Error(message string, err error)
	Summary(r *Report)
	Complete()
}

// NopPrinter discards every event.
type NopPrinter struct{}

func (NopPrinter) Section(string) {}
func (NopPrinter) Command(string) {}
func (NopPrinter) Echo(Channel, string) {}
func (NopPrinter) Input(string) {}
func (NopPrinter) CaseStart(int, string) {}
func (NopPrinter) CaseEnd(int, string, bool) {}
func (NopPrinter) AssertionFailed(string) {}
func (NopPrinter) Error(string, error) {}
func (NopPrinter) Summary(*Report) {}
func (NopPrinter) Complete() {}

const ruleWidth = 40

// ConsolePrinter renders events as colored lines.
type ConsolePrinter struct {
	mu      sync.Mutex
	w       io.Writer
	profile termenv.Profile
}

// NewConsolePrinter writes to w using the given color profile; pass
// termenv.Ascii for plain text.
func NewConsolePrinter(w io.Writer, profile termenv.Profile) *ConsolePrinter {
	return &ConsolePrinter{w: w, profile: profile}
}

func (p *ConsolePrinter) println(parts ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, strings.Join(parts, " "))
}

func (p *ConsolePrinter) write(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	io.WriteString(p.w, s)
}

func (p *ConsolePrinter) f(text string, style format.Style) string {
	return format.Format(p.profile, text, style)
}

func (p *ConsolePrinter) Section(title string) {
	p.println()
	p.println(format.GlyphSection, p.f(p.f("#### Section: "+title, format.Bold), format.Cyan)+"\n")
}

func (p *ConsolePrinter) Command(line string) {
	p.write(p.f(line, format.Blue) + "\n")
}

func (p *ConsolePrinter) Echo(ch Channel, chunk string) {
	if ch == Stderr {
		chunk = p.f(chunk, format.Red)
	}
	p.write(chunk)
}

func (p *ConsolePrinter) Input(line string) {
	p.write(p.f(line, format.Grey))
}

func (p *ConsolePrinter) CaseStart(index int, description string) {
	p.println(format.GlyphLabel, p.f(fmt.Sprintf("[Test.%d]", index), format.Yellow), p.f(p.f(description, format.Bold), format.Yellow))
	p.println(p.f(helper.StrRepeat("-", ruleWidth), format.Cyan))
}

func (p *ConsolePrinter) CaseEnd(_ int, _ string, failed bool) {
	if failed {
		p.println(format.GlyphFailed, p.f("Failed", format.Yellow))
	} else {
		p.println(format.GlyphDone, p.f("Done", format.Green))
	}
	p.println(p.f(helper.StrRepeat("-", ruleWidth), format.Cyan) + "\n")
}

func (p *ConsolePrinter) AssertionFailed(message string) {
	p.println(p.f("Assertion detected an error:", format.Red), p.f(message, format.Red))
}

func (p *ConsolePrinter) Error(message string, err error) {
	if err == nil {
		p.println(p.f(message, format.Red))
		return
	}
	p.println(p.f(message, format.Red), p.f(strings.TrimSpace(err.Error()), format.Red))
}

func (p *ConsolePrinter) Summary(r *Report) {
	if r.AllPassed() {
		p.println(format.GlyphAllPass, p.f(fmt.Sprintf("%d / %d Passed,", r.Passed, r.Total), format.Green), p.f("Pass rate is 100%", format.Green))
		return
	}
	p.println(format.GlyphSomeFail, p.f(fmt.Sprintf("%d / %d Passed,", r.Passed, r.Total), format.Yellow), p.f(fmt.Sprintf("Pass rate is %.2f%%", r.PassRate), format.Yellow))
	if r.Aborted {
		p.println(p.f(fmt.Sprintf("Run aborted after %d of %d tests", r.Ran, r.Total), format.Red))
	}
	p.println(p.f(helper.StrRepeat("=", ruleWidth), format.Yellow))

	for _, fc := range r.Failed {
		if fc.Aborted {
			p.println()
			p.println(p.f(fmt.Sprintf(" Test.%d aborted ", fc.Index), format.Badge), p.f(fc.Description, format.Yellow))
		}
		for i, note := range fc.Notes {
			p.println()
			p.println(p.f(fmt.Sprintf(" Test.%d Assert.%d ", fc.Index, i+1), format.Badge), p.f(fc.Description, format.Yellow))
			p.println(p.f("Command:", format.Cyan), p.f(note.CommandLine(), format.Cyan))
			p.println(p.f(note.Message, format.Red))
		}
	}
}

func (p *ConsolePrinter) Complete() {
	p.println()
	p.println(format.GlyphComplete, p.f("All complete", format.Cyan))
}
