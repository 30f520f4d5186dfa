package lesst

import (
	"context"
	"fmt"
	"slices"
	"time"
)

// Script is a recorded list of driver steps that can be replayed as a
// Callback. It is the declarative counterpart of calling Cmder methods by
// hand and is what suite files compile to.
type Script struct {
	steps []step
}

type step struct {
	name string
	run  func(c *Cmder)
}

func NewScript() *Script {
	return &Script{}
}

func (s *Script) add(name string, run func(c *Cmder)) *Script {
	s.steps = append(s.steps, step{name: name, run: run})
	return s
}

func (s *Script) Begin() *Script {
	return s.add("begin", func(c *Cmder) { c.Begin() })
}

func (s *Script) Keep() *Script {
	return s.add("keep", func(c *Cmder) { c.Keep() })
}

func (s *Script) SelectChannel(ch Channel) *Script {
	return s.add("channel", func(c *Cmder) { c.SelectChannel(ch) })
}

func (s *Script) WriteIn(line string) *Script {
	return s.add("writeIn", func(c *Cmder) { c.WriteIn(line) })
}

func (s *Script) WriteKey(keys ...Key) *Script {
	return s.add("writeKey", func(c *Cmder) { c.WriteKey(keys...) })
}

func (s *Script) Enter() *Script {
	return s.add("enter", func(c *Cmder) { c.Enter() })
}

// Wait sleeps for d, 3s when omitted. The wait methods take their optional
// durations exactly as Cmder does: an explicit 0 checks once.
func (s *Script) Wait(d ...time.Duration) *Script {
	d = slices.Clone(d)
	return s.add("wait", func(c *Cmder) { c.Wait(d...) })
}

func (s *Script) WaitForData(timeout ...time.Duration) *Script {
	timeout = slices.Clone(timeout)
	return s.add("waitForData", func(c *Cmder) { c.WaitForData(timeout...) })
}

func (s *Script) WaitFor(target Target, timeout ...time.Duration) *Script {
	timeout = slices.Clone(timeout)
	return s.add("waitFor", func(c *Cmder) { c.WaitFor(target, timeout...) })
}

func (s *Script) WaitExit(timeout ...time.Duration) *Script {
	timeout = slices.Clone(timeout)
	return s.add("waitExit", func(c *Cmder) { c.WaitExit(timeout...) })
}

func (s *Script) Assert(fn AssertFunc) *Script {
	if fn == nil {
		panic("lesst: Script.Assert: " + ErrNilPredicate.Error())
	}
	return s.add("assert", func(c *Cmder) { c.Assert(fn) })
}

func (s *Script) AssertExitCode(code int) *Script {
	return s.add("assertExitCode", func(c *Cmder) { c.AssertExitCode(code) })
}

func (s *Script) Interrupt() *Script {
	return s.add("interrupt", func(c *Cmder) { c.Interrupt() })
}

func (s *Script) Len() int { return len(s.steps) }

// Callback replays the steps in order. It stops at the first step that
// leaves the driver in error, or when ctx is cancelled.
func (s *Script) Callback() Callback {
	steps := append([]step(nil), s.steps...)
	return func(ctx context.Context, c *Cmder) error {
		for i, st := range steps {
			if err := ctx.Err(); err != nil {
				return err
			}
			st.run(c)
			if err := c.Err(); err != nil {
				return fmt.Errorf("step %d (%s): %w", i+1, st.name, err)
			}
		}
		return nil
	}
}
