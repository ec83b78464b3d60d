package classpath

import (
	"encoding/json"
	"fmt"

	"github.com/bazelbuild/bazel-gazelle/label"
)

// Severity of a marker.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Marker is a diagnostic attached to the project whose classpath is being
// computed.  Markers never fail the computation.
type Marker struct {
	Severity Severity
	Label    label.Label
	Path     string
	Message  string
}

func (m Marker) String() string {
	if m.Path != "" {
		return fmt.Sprintf("%s: %s: %s (%s)", m.Severity, m.Label, m.Message, m.Path)
	}
	return fmt.Sprintf("%s: %s: %s", m.Severity, m.Label, m.Message)
}

// MarshalJSON encodes the marker with its label in string form.
func (m Marker) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Severity string `json:"severity"`
		Target   string `json:"target"`
		Path     string `json:"path,omitempty"`
		Message  string `json:"message"`
	}{
		Severity: m.Severity.String(),
		Target:   m.Label.String(),
		Path:     m.Path,
		Message:  m.Message,
	})
}
