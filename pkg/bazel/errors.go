package bazel

import (
	"fmt"
	"strings"
)

const maxStderrTail = 2048

// CommandError is returned when a bazel command fails.  It preserves the
// underlying cause.
type CommandError struct {
	WorkspaceRoot string
	Args          []string
	ExitCode      int
	Stderr        string
	Err           error
}

func (e *CommandError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bazel %s in %s failed", QuoteFlags(e.Args), e.WorkspaceRoot)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " (exit code %d)", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if tail := stderrTail(e.Stderr); tail != "" {
		fmt.Fprintf(&b, "\n%s", tail)
	}
	return b.String()
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

func stderrTail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxStderrTail {
		s = "..." + s[len(s)-maxStderrTail:]
	}
	return s
}
