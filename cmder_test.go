package lesst

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.alt-gnome.ru/lesst/providers"
)

func newTestCmder(t *testing.T, p *fakeProvider, opts ...CmdOption) *Cmder {
	t.Helper()
	c := NewCmder(context.Background(), CmdLine("prog", []string{"--flag"}, opts...),
		WithCmderProvider(p),
		WithCmderPollInterval(10*time.Millisecond),
	)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestBeginSpawnsOnce(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)

	c.Begin().Begin()
	require.Equal(t, 1, p.Starts())

	p.Session(0).stdout <- "hello"
	c.WaitForData(time.Second)
	require.True(t, c.Matched())

	// Give a duplicate listener, had one been attached, time to double the chunk.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "hello", c.Output(Stdout))
}

func TestBeginPassesShellCommand(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p, WithDir("/tmp"), WithEnv("A=B"))
	c.Begin()

	require.Len(t, p.commands, 1)
	cmd := p.commands[0]
	assert.Equal(t, "prog", cmd.Name)
	assert.Equal(t, []string{"--flag"}, cmd.Args)
	assert.Equal(t, "/tmp", cmd.Dir)
	assert.Equal(t, []string{"A=B"}, cmd.Env)
	assert.True(t, cmd.Shell)
}

func TestBeginFailureSetsErr(t *testing.T) {
	p := &fakeProvider{err: errFake}
	c := newTestCmder(t, p)

	c.Begin().WriteIn("ignored")

	require.Error(t, c.Err())
	assert.ErrorIs(t, c.Err(), errFake)
	assert.NoError(t, c.Close())
}

func TestKeepClearsEveryChannel(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin()

	s := p.Session(0)
	s.stdout <- "out"
	s.stderr <- "err"
	require.Eventually(t, func() bool {
		return c.Output(Stdout) == "out" && c.Output(Stderr) == "err"
	}, time.Second, 5*time.Millisecond)

	c.WriteIn("Nancy").Keep()

	assert.Empty(t, c.Output(Stdout))
	assert.Empty(t, c.Output(Stderr))
	c.Assert(func(string, string) error { return errFake })
	require.Len(t, c.Failures(), 1)
	assert.Empty(t, c.Failures()[0].Stdin, "keep resets the last input")
}

func TestAssertCapturesFailureAndContinues(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin()
	p.Session(0).stdout <- "Enter name: "
	c.WaitForData(time.Second).WriteIn("Nancy")

	c.Assert(func(stdout, _ string) error {
		return errors.New("  expected age prompt \n")
	})
	c.Assert(Contains("Enter name"))

	failed := c.Failures()
	require.Len(t, failed, 1)
	assert.Equal(t, "expected age prompt", failed[0].Message)
	assert.Equal(t, "prog", failed[0].Cmd)
	assert.Equal(t, []string{"--flag"}, failed[0].Args)
	assert.Equal(t, "Enter name: ", failed[0].Stdout)
	assert.Equal(t, "Nancy", failed[0].Stdin)
	assert.Equal(t, "prog --flag", failed[0].CommandLine())
	assert.NoError(t, c.Err(), "a failed assertion does not fail the driver")
}

func TestAssertNilPanics(t *testing.T) {
	c := newTestCmder(t, &fakeProvider{})
	assert.Panics(t, func() { c.Assert(nil) })
}

func TestFailuresIsACopy(t *testing.T) {
	c := newTestCmder(t, &fakeProvider{})
	c.Assert(func(string, string) error { return errFake })

	failed := c.Failures()
	failed[0].Message = "changed"
	assert.Equal(t, errFake.Error(), c.Failures()[0].Message)
}

func TestWaitForDataTimesOut(t *testing.T) {
	c := newTestCmder(t, &fakeProvider{})
	c.Begin()

	start := time.Now()
	c.WaitForData(200 * time.Millisecond)
	elapsed := time.Since(start)

	assert.False(t, c.Matched())
	assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	assert.Less(t, elapsed, 400*time.Millisecond)
}

func TestWaitForDataReturnsOnData(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin()

	go func() {
		time.Sleep(50 * time.Millisecond)
		p.Session(0).stdout <- "ready"
	}()

	start := time.Now()
	c.WaitForData(3 * time.Second)
	assert.True(t, c.Matched())
	assert.Less(t, time.Since(start), time.Second)
}

func TestWaitForTargets(t *testing.T) {
	tests := []struct {
		name   string
		target Target
	}{
		{"text", Text("name is")},
		{"pattern", Pattern(`name is \w+`)},
		{"regexp", Regexp(regexp.MustCompile(`Nan+cy`))},
		{"func", Func(func(buf string) bool { return strings.HasSuffix(buf, "Nancy\n") })},
		{"any string", TargetOf("name")},
		{"any number", TargetOf(42)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{}
			c := newTestCmder(t, p)
			c.Begin()
			p.Session(0).stdout <- "42 name is Nancy\n"

			c.WaitFor(tt.target, time.Second)
			assert.True(t, c.Matched())
			assert.NoError(t, c.Err())
		})
	}
}

func TestWaitForNoMatchTimesOut(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin()
	p.Session(0).stdout <- "nothing useful"

	start := time.Now()
	c.WaitFor(Text("name is"), 150*time.Millisecond)
	assert.False(t, c.Matched())
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.NoError(t, c.Err())
}

func TestWaitForReadsSelectedChannel(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin()
	p.Session(0).stderr <- "warning: disk full"

	c.WaitFor(Text("warning"), 100*time.Millisecond)
	assert.False(t, c.Matched(), "stdout is the default channel")

	c.SelectChannel(Stderr).WaitFor(Text("warning"), time.Second)
	assert.True(t, c.Matched())
	assert.Equal(t, Stderr, c.ActiveChannel())
}

func TestWaitForInvalidTargetFailsDriver(t *testing.T) {
	c := newTestCmder(t, &fakeProvider{})
	c.Begin()

	start := time.Now()
	c.WaitFor(Pattern("("), time.Second)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Error(t, c.Err())

	c2 := newTestCmder(t, &fakeProvider{})
	c2.WaitFor(Target{})
	assert.ErrorIs(t, c2.Err(), ErrNilPredicate)
}

func TestWaitHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := NewCmder(ctx, CmdLine("prog", nil), WithCmderProvider(&fakeProvider{}))
	cancel()

	start := time.Now()
	c.Wait(time.Minute).WaitFor(Text("x"), time.Minute)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWriteInAndKeys(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Begin().WriteIn("Sean").WriteKey(KeyDown, KeyUp).Enter()

	assert.Equal(t, []string{"Sean\n", "\x1b[B", "\x1b[A", "\n"}, p.Session(0).Writes())
}

func TestWriteInDroppedWhenNotWritable(t *testing.T) {
	p := &fakeProvider{onStart: func(s *fakeSession) { s.writeErr = providers.ErrNotWritable }}
	c := newTestCmder(t, p)

	c.WriteIn("before begin")
	c.Begin().WriteIn("after exit").Enter()

	assert.Empty(t, p.Session(0).Writes())
	assert.NoError(t, c.Err())
	c.Assert(func(string, string) error { return errFake })
	assert.Equal(t, "after exit", c.Failures()[0].Stdin)
}

func TestEchoRequiresDisplay(t *testing.T) {
	p := &fakeProvider{}
	pr := &recordingPrinter{}
	c := NewCmder(context.Background(), CmdLine("prog", nil, WithStdout(true)),
		WithCmderProvider(p), WithCmderPrinter(pr))
	c.Begin()
	p.Session(0).stdout <- "visible"
	p.Session(0).stderr <- "hidden"
	c.WaitForData(time.Second)
	require.NoError(t, c.Close())

	assert.Equal(t, "visible", pr.Echoed(Stdout))
	assert.Empty(t, pr.Echoed(Stderr), "stderr echo is opt-in")

	quiet := &recordingPrinter{}
	c2 := NewCmder(context.Background(), CmdLine("prog", nil), WithCmderProvider(&fakeProvider{}), WithCmderPrinter(quiet))
	c2.Begin().Assert(func(string, string) error { return errFake })
	require.NoError(t, c2.Close())
	assert.Empty(t, quiet.Events())
}

func TestExitCodeAssertions(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.AssertExitCode(0)
	c.Begin()

	s := p.Session(0)
	c.WaitExit(50 * time.Millisecond)
	assert.False(t, c.Matched())

	s.exit(2)
	c.WaitExit(time.Second).AssertExitCode(2).AssertExitCode(0)
	assert.True(t, c.Matched())

	code, exited := c.ExitCode()
	assert.True(t, exited)
	assert.Equal(t, 2, code)

	failed := c.Failures()
	require.Len(t, failed, 2)
	assert.Contains(t, failed[0].Message, "has not exited")
	assert.Equal(t, "unexpected exit code: got 2, want 0", failed[1].Message)
}

func TestExitedImpliesOutputBuffered(t *testing.T) {
	p := &fakeProvider{onStart: func(s *fakeSession) {
		s.stdout <- "last words"
		s.exit(0)
	}}
	c := newTestCmder(t, p)

	c.Begin().WaitExit(time.Second)
	require.True(t, c.Matched())
	assert.Equal(t, "last words", c.Output(Stdout))
}

func TestInterrupt(t *testing.T) {
	p := &fakeProvider{}
	c := newTestCmder(t, p)
	c.Interrupt()
	c.Begin().Interrupt()
	assert.Equal(t, 1, p.Session(0).interrupts)
}

func TestCloseSurfacesKillError(t *testing.T) {
	p := &fakeProvider{onStart: func(s *fakeSession) { s.killErr = errFake }}
	c := NewCmder(context.Background(), CmdLine("prog", nil), WithCmderProvider(p))

	assert.NoError(t, c.Close(), "nothing to close before Begin")
	c.Begin()
	err := c.Close()
	assert.ErrorIs(t, err, errFake)
	assert.True(t, p.Session(0).Killed())
}
