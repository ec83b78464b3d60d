package buildfile

import (
	"github.com/bazelbuild/buildtools/build"
)

// Binding is a single symbol imported by a load statement.
type Binding struct {
	// Local is the name bound in the loading file.
	Local string
	// Original is the name exported by the loaded module.
	Original string
}

// LoadStatement is a load("module", ...) statement.
type LoadStatement struct {
	Module   string
	Bindings []Binding
	Line     int
}

func newLoadStatement(load *build.LoadStmt) *LoadStatement {
	start, _ := load.Span()
	ls := &LoadStatement{
		Module: load.Module.Value,
		Line:   start.Line,
	}
	for i := range load.To {
		ls.Bindings = append(ls.Bindings, Binding{
			Local:    load.To[i].Name,
			Original: load.From[i].Name,
		})
	}
	return ls
}

// Symbols returns the original names imported by the statement.
func (l *LoadStatement) Symbols() []string {
	symbols := make([]string, len(l.Bindings))
	for i, b := range l.Bindings {
		symbols[i] = b.Original
	}
	return symbols
}
