package lesst

import (
	"slices"

	"go.alt-gnome.ru/lesst/internal/helper"
	"go.alt-gnome.ru/lesst/providers"
)

// CmdOptions configures how a command is launched and displayed.
type CmdOptions struct {
	// Stdout echoes child output and harness labels to the printer.
	Stdout bool
	// Stderr additionally echoes the child's error stream.
	Stderr bool
	Dir    string
	Env    []string
}

// Shell is always true: commands are interpreted by the system shell.
func (CmdOptions) Shell() bool { return true }

// CmdOption configures a CmdSpec built by CmdLine.
type CmdOption func(*CmdOptions)

func WithStdout(show bool) CmdOption {
	return func(o *CmdOptions) { o.Stdout = show }
}

func WithStderr(show bool) CmdOption {
	return func(o *CmdOptions) { o.Stderr = show }
}

// WithDir sets the working directory of the child.
func WithDir(dir string) CmdOption {
	return func(o *CmdOptions) { o.Dir = dir }
}

// WithEnv appends KEY=VALUE pairs to the inherited environment.
func WithEnv(env ...string) CmdOption {
	return func(o *CmdOptions) { o.Env = append(o.Env, env...) }
}

// CmdSpec identifies the process a test case launches. It is a value type;
// nothing reachable from it can be changed after CmdLine returns.
type CmdSpec struct {
	cmd  string
	args []string
	opts CmdOptions
}

// CmdLine describes a command to run through the shell.
func CmdLine(cmd string, args []string, opts ...CmdOption) CmdSpec {
	var o CmdOptions
	for _, opt := range opts {
		opt(&o)
	}
	o.Env = slices.Clone(o.Env)
	return CmdSpec{cmd: cmd, args: slices.Clone(args), opts: o}
}

func (s CmdSpec) Cmd() string { return s.cmd }

func (s CmdSpec) Args() []string { return slices.Clone(s.args) }

func (s CmdSpec) Options() CmdOptions {
	o := s.opts
	o.Env = slices.Clone(o.Env)
	return o
}

// String renders the command line as typed at a shell.
func (s CmdSpec) String() string {
	return helper.CmdStringify(s.cmd, s.args)
}

// With returns a copy of s with further options applied.
func (s CmdSpec) With(opts ...CmdOption) CmdSpec {
	o := s.Options()
	for _, opt := range opts {
		opt(&o)
	}
	return CmdSpec{cmd: s.cmd, args: slices.Clone(s.args), opts: o}
}

func (s CmdSpec) command() providers.Command {
	return providers.Command{
		Name:  s.cmd,
		Args:  slices.Clone(s.args),
		Dir:   s.opts.Dir,
		Env:   slices.Clone(s.opts.Env),
		Shell: s.opts.Shell(),
	}
}
