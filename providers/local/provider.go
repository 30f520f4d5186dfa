// Package local runs commands as plain child processes of the harness,
// connected through pipes.
package local

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"go.alt-gnome.ru/lesst/providers"
)

// waitDelay bounds how long Wait keeps copying output after the process is
// gone; shell grandchildren may hold the pipes open.
const waitDelay = 500 * time.Millisecond

type localProvider struct{}

func Provider() *localProvider {
	return &localProvider{}
}

type session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser

	stdoutC chan string
	stderrC chan string
	done    chan struct{}

	mu       sync.Mutex
	exited   bool
	exitCode int
	waitErr  error
}

// chanWriter forwards every chunk exec copies from the child as a string.
type chanWriter chan<- string

func (w chanWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func (p *localProvider) StartCommand(cmd providers.Command) (providers.InteractiveSession, error) {
	c := buildCmd(cmd)
	stdin, err := c.StdinPipe()
	if err != nil {
		return nil, err
	}

	sess := &session{
		cmd:      c,
		stdin:    stdin,
		stdoutC:  make(chan string),
		stderrC:  make(chan string),
		done:     make(chan struct{}),
		exitCode: -1,
	}
	c.Stdout = chanWriter(sess.stdoutC)
	c.Stderr = chanWriter(sess.stderrC)

	if err := c.Start(); err != nil {
		return nil, err
	}

	go func() {
		// Wait returns once the output copies finish, or WaitDelay after
		// the process exits if something still holds the pipes.
		err := c.Wait()
		sess.mu.Lock()
		sess.exited = true
		sess.waitErr = err
		sess.exitCode = exitCodeOf(c, err)
		sess.mu.Unlock()
		close(sess.stdoutC)
		close(sess.stderrC)
		close(sess.done)
	}()

	return sess, nil
}

func buildCmd(cmd providers.Command) *exec.Cmd {
	var c *exec.Cmd
	if cmd.Shell {
		line := strings.Join(append([]string{cmd.Name}, cmd.Args...), " ")
		if runtime.GOOS == "windows" {
			c = exec.Command("cmd.exe", "/d", "/s", "/c", line)
		} else {
			c = exec.Command("/bin/sh", "-c", line)
		}
	} else {
		c = exec.Command(cmd.Name, cmd.Args...)
	}
	c.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		c.Env = append(os.Environ(), cmd.Env...)
	}
	c.WaitDelay = waitDelay
	setProcessGroup(c)
	return c
}

func exitCodeOf(c *exec.Cmd, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if c.ProcessState != nil {
		return c.ProcessState.ExitCode()
	}
	return -1
}

func (s *session) Write(input []byte) error {
	if _, exited := s.Exited(); exited {
		return providers.ErrNotWritable
	}
	if _, err := s.stdin.Write(input); err != nil {
		return errors.Join(providers.ErrNotWritable, err)
	}
	return nil
}

func (s *session) Stdout() <-chan string {
	return s.stdoutC
}

func (s *session) Stderr() <-chan string {
	return s.stderrC
}

func (s *session) Exited() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.exited
}

func (s *session) Wait() (int, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	var exitErr *exec.ExitError
	if s.waitErr == nil || errors.As(s.waitErr, &exitErr) || errors.Is(s.waitErr, exec.ErrWaitDelay) {
		return s.exitCode, nil
	}
	return s.exitCode, s.waitErr
}

func (s *session) Interrupt() error {
	if s.cmd.Process == nil {
		return providers.ErrNotStarted
	}
	if _, exited := s.Exited(); exited {
		return nil
	}
	return interruptProcess(s.cmd)
}

// Kill terminates the process group and closes stdin. Killing a process that
// already exited is not an error.
func (s *session) Kill() error {
	if s.cmd.Process == nil {
		return providers.ErrNotStarted
	}
	_ = s.stdin.Close()
	if _, exited := s.Exited(); exited {
		return nil
	}
	if err := killProcess(s.cmd); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	return nil
}
