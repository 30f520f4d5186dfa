package lesst

import (
	"fmt"
	"regexp"
)

type targetKind int

const (
	predicateTarget targetKind = iota
	patternTarget
)

// A Target is the condition WaitFor polls for: either a predicate over the
// active channel's buffer or a compiled pattern.
type Target struct {
	kind    targetKind
	pred    func(buf string) bool
	pattern *regexp.Regexp
	desc    string
	err     error
}

// Func matches when fn reports true for the current buffer.
func Func(fn func(buf string) bool) Target {
	if fn == nil {
		return Target{kind: predicateTarget, desc: "nil predicate", err: fmt.Errorf("WaitFor: %w", ErrNilPredicate)}
	}
	return Target{kind: predicateTarget, pred: fn, desc: "predicate"}
}

// Regexp matches when re finds a match in the buffer.
func Regexp(re *regexp.Regexp) Target {
	if re == nil {
		return Target{kind: patternTarget, desc: "nil regexp", err: fmt.Errorf("WaitFor: %w", ErrNilPredicate)}
	}
	return Target{kind: patternTarget, pattern: re, desc: fmt.Sprintf("regexp %q", re.String())}
}

// Pattern compiles s as a regular expression. An invalid pattern yields a
// Target whose use fails the driver.
func Pattern(s string) Target {
	re, err := regexp.Compile(s)
	if err != nil {
		return Target{kind: patternTarget, desc: fmt.Sprintf("regexp %q", s), err: fmt.Errorf("invalid pattern %q: %w", s, err)}
	}
	return Regexp(re)
}

// Text matches when the buffer contains s literally.
func Text(s string) Target {
	return Regexp(regexp.MustCompile(regexp.QuoteMeta(s)))
}

// TargetOf resolves the loose form accepted by WaitFor in scripts: a
// Target, a predicate function, a *regexp.Regexp, or any other value whose
// string form is compiled as a pattern.
func TargetOf(v any) Target {
	switch t := v.(type) {
	case Target:
		return t
	case func(string) bool:
		return Func(t)
	case *regexp.Regexp:
		return Regexp(t)
	case string:
		return Pattern(t)
	case fmt.Stringer:
		return Pattern(t.String())
	default:
		return Pattern(fmt.Sprint(v))
	}
}

// Match evaluates the target against buf.
func (t Target) Match(buf string) bool {
	if t.err != nil {
		return false
	}
	switch t.kind {
	case predicateTarget:
		return t.pred != nil && t.pred(buf)
	case patternTarget:
		return t.pattern != nil && t.pattern.MatchString(buf)
	}
	return false
}

// Err reports why the target cannot be evaluated, if it cannot.
func (t Target) Err() error {
	if t.err == nil && t.pred == nil && t.pattern == nil {
		return fmt.Errorf("WaitFor: empty target: %w", ErrNilPredicate)
	}
	return t.err
}

func (t Target) String() string { return t.desc }
