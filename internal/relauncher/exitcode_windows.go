//go:build windows

package relauncher

import "os"

// exitCode returns the child's exit status. Windows has no signal deaths.
func exitCode(state *os.ProcessState) int {
	if state == nil {
		return 1
	}
	return state.ExitCode()
}
