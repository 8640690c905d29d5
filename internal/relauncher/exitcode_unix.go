//go:build !windows

package relauncher

import (
	"os"
	"syscall"
)

// exitCode maps a finished child to a shell-style status.
// A child killed by a signal reports 128 + the signal number.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
