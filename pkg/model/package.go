package model

import (
	"context"
	"os"
	"path/filepath"

	"github.com/bazelbuild/bazel-gazelle/label"
)

// BuildFileNames are the names of a package build file, in order of
// preference.
var BuildFileNames = []string{"BUILD.bazel", "BUILD"}

// Package is the handle of a package, identified by its workspace and its
// slash-separated workspace-relative path ("" for the root package).
type Package struct {
	workspace Workspace
	path      string
}

// Kind implements Element.
func (p Package) Kind() Kind { return PackageKind }

// Parent implements Element.
func (p Package) Parent() Element { return p.workspace }

// Location implements Element.
func (p Package) Location() string { return p.Dir() }

// Model implements Element.
func (p Package) Model() *Model { return p.workspace.model }

func (p Package) String() string { return "//" + p.path }

// Workspace returns the owning workspace.
func (p Package) Workspace() Workspace { return p.workspace }

// Path returns the workspace-relative path.
func (p Package) Path() string { return p.path }

// Dir returns the absolute package directory.
func (p Package) Dir() string {
	return filepath.Join(p.workspace.root, filepath.FromSlash(p.path))
}

// Label returns the label of the package itself ("//path").
func (p Package) Label() label.Label {
	return label.New("", p.path, "")
}

// Target returns the handle of the named target in this package.
func (p Package) Target(name string) Target {
	return Target{pkg: p, name: name}
}

// BuildFile returns the handle of the package build file, if one exists.
func (p Package) BuildFile() (BuildFile, bool) {
	dir := p.Dir()
	for _, name := range BuildFileNames {
		if info, err := os.Stat(filepath.Join(dir, name)); err == nil && !info.IsDir() {
			return BuildFile{pkg: p, name: name}, true
		}
	}
	return BuildFile{}, false
}

// Exists reports whether the directory holds a BUILD.bazel or BUILD file.
func (p Package) Exists() bool {
	_, ok := p.BuildFile()
	return ok
}

// Info returns the loaded package info.
func (p Package) Info(ctx context.Context) (*PackageInfo, error) {
	return getInfo[*PackageInfo](ctx, p)
}

func (p Package) createInfo(ctx context.Context, parent Info) (Info, error) {
	buildFile, ok := p.BuildFile()
	if !ok {
		return nil, &NotExistError{Element: p}
	}
	return newPackageInfo(ctx, p, buildFile)
}
