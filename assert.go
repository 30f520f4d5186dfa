package lesst

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/stretchr/testify/assert"
)

// AssertFunc checks the buffered output. A non-nil error is recorded as a
// failure by Cmder.Assert; it never aborts the scenario.
type AssertFunc func(stdout, stderr string) error

// Contains requires stdout to contain substr.
func Contains(substr string) AssertFunc {
	return func(stdout, _ string) error {
		if !strings.Contains(stdout, substr) {
			return fmt.Errorf("stdout does not contain %q\nstdout: %q", substr, stdout)
		}
		return nil
	}
}

func NotContains(substr string) AssertFunc {
	return func(stdout, _ string) error {
		if strings.Contains(stdout, substr) {
			return fmt.Errorf("stdout unexpectedly contains %q\nstdout: %q", substr, stdout)
		}
		return nil
	}
}

// Equals requires stdout to be exactly want.
func Equals(want string) AssertFunc {
	return func(stdout, _ string) error {
		if stdout != want {
			return fmt.Errorf("stdout is %q, want %q", stdout, want)
		}
		return nil
	}
}

// Matches requires stdout to match the regular expression pattern.
func Matches(pattern string) AssertFunc {
	return matches(Stdout, pattern)
}

func StderrMatches(pattern string) AssertFunc {
	return matches(Stderr, pattern)
}

func matches(ch Channel, pattern string) AssertFunc {
	re, err := regexp.Compile(pattern)
	return func(stdout, stderr string) error {
		if err != nil {
			return fmt.Errorf("invalid regex %q: %v", pattern, err)
		}
		buf := pick(ch, stdout, stderr)
		if !re.MatchString(buf) {
			return fmt.Errorf("%s does not match regex %q\n%s: %q", ch, pattern, ch, buf)
		}
		return nil
	}
}

func Empty() AssertFunc {
	return func(stdout, _ string) error {
		if stdout != "" {
			return fmt.Errorf("expected stdout to be empty but got: %q", stdout)
		}
		return nil
	}
}

func StderrContains(substr string) AssertFunc {
	return func(_, stderr string) error {
		if !strings.Contains(stderr, substr) {
			return fmt.Errorf("stderr does not contain %q\nstderr: %q", substr, stderr)
		}
		return nil
	}
}

func StderrEmpty() AssertFunc {
	return func(_, stderr string) error {
		if stderr != "" {
			return fmt.Errorf("expected stderr to be empty but got: %q", stderr)
		}
		return nil
	}
}

// All runs every check and joins their failures into one.
func All(fns ...AssertFunc) AssertFunc {
	return func(stdout, stderr string) error {
		var errs []error
		for _, fn := range fns {
			if fn == nil {
				continue
			}
			if err := fn(stdout, stderr); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	}
}

// Expect adapts testify assertions into an AssertFunc, so a scenario can be
// written as
//
//	c.Assert(lesst.Expect(func(is *assert.Assertions, out, _ string) {
//		is.Contains(out, "name is Nancy")
//	}))
//
// Every failed assertion inside fn contributes to a single failure message.
func Expect(fn func(is *assert.Assertions, stdout, stderr string)) AssertFunc {
	if fn == nil {
		panic("lesst: Expect requires a non-nil function")
	}
	return func(stdout, stderr string) error {
		rec := &recorder{}
		fn(assert.New(rec), stdout, stderr)
		if len(rec.messages) == 0 {
			return nil
		}
		return errors.New(strings.Join(rec.messages, "\n"))
	}
}

// recorder satisfies assert.TestingT by keeping messages instead of failing
// a test.
type recorder struct {
	messages []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.messages = append(r.messages, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func pick(ch Channel, stdout, stderr string) string {
	if ch == Stderr {
		return stderr
	}
	return stdout
}
