// Package buildfile reads Starlark build files (BUILD, MODULE.bazel,
// WORKSPACE) into their load statements and top-level function calls.
package buildfile

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/bazelbuild/buildtools/build"
)

const (
	PackageFunction   = "package"
	ModuleFunction    = "module"
	WorkspaceFunction = "workspace"
)

type parseFunc func(filename string, data []byte) (*build.File, error)

// ReaderOption configures a Reader.
type ReaderOption func(*Reader) *Reader

// WithDesignatedFunction names a function whose first top-level call is
// captured separately (see Reader.DesignatedCall).  Calls to it are not
// reported as macro calls.
func WithDesignatedFunction(name string) ReaderOption {
	return func(r *Reader) *Reader {
		r.designated = name
		return r
	}
}

// WithData makes the reader parse the given content instead of reading the
// file from disk.
func WithData(data []byte) ReaderOption {
	return func(r *Reader) *Reader {
		r.data = data
		return r
	}
}

// Reader parses a single Starlark file.  Read must be called exactly once
// before any of the accessors.
type Reader struct {
	filename   string
	designated string
	data       []byte
	parse      parseFunc

	read           bool
	file           *build.File
	loads          []*LoadStatement
	calls          []*MacroCall
	designatedCall *MacroCall
	aliases        map[string]string
}

// NewReader creates a reader for the given file.  The parser dialect is
// chosen from the file name.
func NewReader(filename string, options ...ReaderOption) *Reader {
	r := &Reader{
		filename: filename,
		parse:    parserForFilename(filename),
		aliases:  make(map[string]string),
	}
	for _, opt := range options {
		r = opt(r)
	}
	return r
}

// NewBuildFileReader creates a reader for a BUILD file that captures the
// package() call.
func NewBuildFileReader(filename string, options ...ReaderOption) *Reader {
	return NewReader(filename, append([]ReaderOption{WithDesignatedFunction(PackageFunction)}, options...)...)
}

// NewModuleFileReader creates a reader for a MODULE.bazel file that captures
// the module() call.
func NewModuleFileReader(filename string, options ...ReaderOption) *Reader {
	return NewReader(filename, append([]ReaderOption{WithDesignatedFunction(ModuleFunction)}, options...)...)
}

// NewWorkspaceFileReader creates a reader for a WORKSPACE file that captures
// the workspace() call.
func NewWorkspaceFileReader(filename string, options ...ReaderOption) *Reader {
	return NewReader(filename, append([]ReaderOption{WithDesignatedFunction(WorkspaceFunction)}, options...)...)
}

func parserForFilename(filename string) parseFunc {
	base := filepath.Base(filename)
	switch {
	case base == "MODULE.bazel" || filepath.Ext(base) == ".MODULE.bazel":
		return build.ParseModule
	case base == "WORKSPACE" || base == "WORKSPACE.bazel" || base == "WORKSPACE.bzlmod":
		return build.ParseWorkspace
	case filepath.Ext(base) == ".bzl":
		return build.ParseBzl
	default:
		return build.ParseBuild
	}
}

// Filename returns the name of the file being read.
func (r *Reader) Filename() string {
	return r.filename
}

// Read parses the file.  It is a programming error to call Read twice.
func (r *Reader) Read() error {
	if r.read {
		log.Panicf("buildfile: Read called twice for %s", r.filename)
	}
	r.read = true

	data := r.data
	if data == nil {
		var err error
		data, err = os.ReadFile(r.filename)
		if err != nil {
			return fmt.Errorf("reading %s: %w", r.filename, err)
		}
	}

	file, err := r.parse(r.filename, data)
	if err != nil {
		return newSyntaxError(r.filename, err)
	}

	var loads []*LoadStatement
	aliases := make(map[string]string)
	for _, stmt := range file.Stmt {
		load, ok := stmt.(*build.LoadStmt)
		if !ok {
			continue
		}
		ls := newLoadStatement(load)
		for _, b := range ls.Bindings {
			aliases[b.Local] = b.Original
		}
		loads = append(loads, ls)
	}

	var calls []*MacroCall
	var designatedCall *MacroCall
	for _, stmt := range file.Stmt {
		call, ok := stmt.(*build.CallExpr)
		if !ok {
			continue
		}
		ident, ok := call.X.(*build.Ident)
		if !ok {
			continue
		}
		resolved := ident.Name
		if original, ok := aliases[ident.Name]; ok {
			resolved = original
		}
		mc := newMacroCall(ident.Name, resolved, call)
		if r.designated != "" && resolved == r.designated {
			if designatedCall == nil {
				designatedCall = mc
			}
			continue
		}
		calls = append(calls, mc)
	}

	r.file = file
	r.loads = loads
	r.calls = calls
	r.designatedCall = designatedCall
	r.aliases = aliases
	return nil
}

func (r *Reader) mustBeRead() {
	if !r.read || r.file == nil {
		log.Panicf("buildfile: %s has not been read successfully", r.filename)
	}
}

// File returns the parsed syntax tree.
func (r *Reader) File() *build.File {
	r.mustBeRead()
	return r.file
}

// LoadStatements returns the load statements in file order.
func (r *Reader) LoadStatements() []*LoadStatement {
	r.mustBeRead()
	return r.loads
}

// MacroCalls returns the top-level calls in file order, excluding calls to the
// designated function.
func (r *Reader) MacroCalls() []*MacroCall {
	r.mustBeRead()
	return r.calls
}

// DesignatedCall returns the first call to the designated function, or nil.
func (r *Reader) DesignatedCall() *MacroCall {
	r.mustBeRead()
	return r.designatedCall
}

// ResolveFunctionName maps a local name to the original symbol it was loaded
// as.  Unbound names resolve to themselves.
func (r *Reader) ResolveFunctionName(local string) string {
	r.mustBeRead()
	if original, ok := r.aliases[local]; ok {
		return original
	}
	return local
}
