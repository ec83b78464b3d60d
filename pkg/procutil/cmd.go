package procutil

import (
	"errors"
	"os/exec"
)

// ExitCode returns the exit code of a command after Run or Wait returned
// err.  It is -1 when the process never started or was killed by a signal.
func ExitCode(cmd *exec.Cmd, err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if err != nil || cmd.ProcessState == nil {
		return -1
	}
	return cmd.ProcessState.ExitCode()
}
