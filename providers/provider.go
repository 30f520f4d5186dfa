// Package providers defines the contract between the process driver and the
// backend that actually runs a child program.
package providers

import "errors"

var (
	// ErrNotWritable is returned by InteractiveSession.Write once the child's
	// input is no longer accepting data (process exited or stdin closed).
	ErrNotWritable = errors.New("stdin is not writable")
	// ErrNotStarted is returned when signalling a session that has no process.
	ErrNotStarted = errors.New("process not started")
)

// Command describes a child program to launch.
type Command struct {
	Name string
	Args []string
	Dir  string
	Env  []string
	// Shell makes the backend interpret Name and Args through a shell.
	Shell bool
}

type Provider interface {
	StartCommand(cmd Command) (InteractiveSession, error)
}

type InteractiveSession interface {
	Write(input []byte) error

	// Stdout and Stderr deliver output chunks in arrival order. Both are
	// closed once the child's streams reach EOF.
	Stdout() <-chan string
	Stderr() <-chan string

	// Exited reports whether the process has terminated, and its exit code.
	Exited() (exitCode int, exited bool)
	Wait() (exitCode int, err error)
	Interrupt() error
	Kill() error
}
