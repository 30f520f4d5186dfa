// Package helper holds small stateless utilities shared by the driver and
// the orchestrator.
package helper

import (
	"context"
	"strings"
	"time"
)

// Delay sleeps for d, returning early with the context's error if ctx is
// cancelled first. A non-positive d still yields to the scheduler once.
func Delay(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StrRepeat repeats s times times; negative counts yield "".
func StrRepeat(s string, times int) string {
	if times <= 0 {
		return ""
	}
	return strings.Repeat(s, times)
}

// CmdStringify joins a command and its arguments with single spaces.
func CmdStringify(cmd string, args []string) string {
	if len(args) == 0 {
		return cmd
	}
	return cmd + " " + strings.Join(args, " ")
}
