//go:build unix

package local

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the shell and everything it forks into one group so
// Kill reaches the actual program, not just the shell.
func setProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func interruptProcess(c *exec.Cmd) error {
	if err := unix.Kill(-c.Process.Pid, unix.SIGINT); err != nil {
		return c.Process.Signal(unix.SIGINT)
	}
	return nil
}

func killProcess(c *exec.Cmd) error {
	if err := unix.Kill(-c.Process.Pid, unix.SIGKILL); err != nil {
		return c.Process.Kill()
	}
	return nil
}
