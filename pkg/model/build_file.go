package model

import (
	"context"
	"path/filepath"

	"github.com/stackb/bazel-classpath/pkg/buildfile"
)

// BuildFile is the handle of the build file of a package.
type BuildFile struct {
	pkg  Package
	name string
}

// Kind implements Element.
func (b BuildFile) Kind() Kind { return BuildFileKind }

// Parent implements Element.
func (b BuildFile) Parent() Element { return b.pkg }

// Location implements Element.
func (b BuildFile) Location() string { return b.Path() }

// Model implements Element.
func (b BuildFile) Model() *Model { return b.pkg.Model() }

func (b BuildFile) String() string { return b.Path() }

// Package returns the owning package.
func (b BuildFile) Package() Package { return b.pkg }

// Name returns the file name, such as "BUILD.bazel".
func (b BuildFile) Name() string { return b.name }

// Path returns the absolute file path.
func (b BuildFile) Path() string {
	return filepath.Join(b.pkg.Dir(), b.name)
}

// Info returns the parsed build file.
func (b BuildFile) Info(ctx context.Context) (*BuildFileInfo, error) {
	return getInfo[*BuildFileInfo](ctx, b)
}

func (b BuildFile) createInfo(ctx context.Context, parent Info) (Info, error) {
	r := buildfile.NewBuildFileReader(b.Path())
	if err := r.Read(); err != nil {
		return nil, err
	}
	return &BuildFileInfo{
		buildFile:   b,
		loads:       r.LoadStatements(),
		calls:       r.MacroCalls(),
		packageCall: r.DesignatedCall(),
	}, nil
}

// BuildFileInfo holds the load statements and top-level calls of a build
// file.
type BuildFileInfo struct {
	buildFile   BuildFile
	loads       []*buildfile.LoadStatement
	calls       []*buildfile.MacroCall
	packageCall *buildfile.MacroCall
}

// Element implements Info.
func (b *BuildFileInfo) Element() Element { return b.buildFile }

// LoadStatements returns the load statements in file order.
func (b *BuildFileInfo) LoadStatements() []*buildfile.LoadStatement { return b.loads }

// MacroCalls returns the top-level calls in file order, package() excluded.
func (b *BuildFileInfo) MacroCalls() []*buildfile.MacroCall { return b.calls }

// PackageCall returns the package() call, or nil.
func (b *BuildFileInfo) PackageCall() *buildfile.MacroCall { return b.packageCall }

// CallsTo returns the top-level calls whose resolved function name is fn.
func (b *BuildFileInfo) CallsTo(fn string) []*buildfile.MacroCall {
	var calls []*buildfile.MacroCall
	for _, call := range b.calls {
		if call.ResolvedFunctionName == fn {
			calls = append(calls, call)
		}
	}
	return calls
}
