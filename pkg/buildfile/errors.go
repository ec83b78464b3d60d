package buildfile

import (
	"errors"
	"fmt"
	"strings"
)

// Diagnostic is a single parser-reported problem.
type Diagnostic struct {
	Message  string
	Location string
}

func (d Diagnostic) String() string {
	if d.Location == "" {
		return d.Message
	}
	return d.Location + ": " + d.Message
}

// SyntaxError aggregates all diagnostics reported while parsing a file.
type SyntaxError struct {
	Filename    string
	Diagnostics []Diagnostic

	cause error
}

func (e *SyntaxError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = d.String()
	}
	return fmt.Sprintf("syntax error in %s: %s", e.Filename, strings.Join(msgs, "; "))
}

func (e *SyntaxError) Unwrap() error {
	return e.cause
}

// newSyntaxError splits the parser error(s) into diagnostics.  The buildtools
// parser reports errors as "file:line:col: message".
func newSyntaxError(filename string, err error) *SyntaxError {
	var errs []error
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		errs = joined.Unwrap()
	} else {
		errs = []error{err}
	}
	se := &SyntaxError{Filename: filename, cause: errors.Join(errs...)}
	for _, e := range errs {
		se.Diagnostics = append(se.Diagnostics, parseDiagnostic(filename, e.Error()))
	}
	return se
}

func parseDiagnostic(filename, msg string) Diagnostic {
	rest := strings.TrimPrefix(msg, filename+":")
	if rest == msg {
		return Diagnostic{Message: msg}
	}
	// rest is "line:col: message"
	parts := strings.SplitN(rest, ": ", 2)
	if len(parts) != 2 {
		return Diagnostic{Message: msg}
	}
	return Diagnostic{
		Location: filename + ":" + parts[0],
		Message:  strings.TrimSpace(parts[1]),
	}
}
