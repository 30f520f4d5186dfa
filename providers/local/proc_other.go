//go:build !unix

package local

import (
	"os"
	"os/exec"
)

func setProcessGroup(*exec.Cmd) {}

func interruptProcess(c *exec.Cmd) error {
	return c.Process.Signal(os.Interrupt)
}

func killProcess(c *exec.Cmd) error {
	return c.Process.Kill()
}
