package model

import (
	"context"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bazelbuild/bazel-gazelle/label"
)

// BoundaryFiles are the files that mark a workspace root, in order of
// preference.
var BoundaryFiles = []string{"WORKSPACE", "WORKSPACE.bazel", "WORKSPACE.bzlmod"}

// ModuleFile is the bzlmod module file name.
const ModuleFile = "MODULE.bazel"

// Workspace is the handle of a bazel workspace, identified by its absolute
// root directory.
type Workspace struct {
	model *Model
	root  string
}

// Kind implements Element.
func (w Workspace) Kind() Kind { return WorkspaceKind }

// Parent implements Element.
func (w Workspace) Parent() Element { return w.model }

// Location implements Element.
func (w Workspace) Location() string { return w.root }

// Model implements Element.
func (w Workspace) Model() *Model { return w.model }

func (w Workspace) String() string { return w.root }

// Root returns the absolute workspace directory.
func (w Workspace) Root() string { return w.root }

// IsZero reports whether w is the zero handle.
func (w Workspace) IsZero() bool { return w.model == nil }

// BoundaryFile returns the path of the first existing workspace boundary
// file.
func (w Workspace) BoundaryFile() (string, bool) {
	return findBoundaryFile(w.root)
}

// Exists reports whether the root holds a workspace boundary file.
func (w Workspace) Exists() bool {
	_, ok := w.BoundaryFile()
	return ok
}

// Package returns the handle of the package at the given workspace-relative
// slash-separated path.  The path is normalized; an absolute path is a
// programming error.
func (w Workspace) Package(rel string) Package {
	rel = filepath.ToSlash(rel)
	if path.IsAbs(rel) || filepath.IsAbs(rel) {
		log.Panicf("model: package path must be workspace relative: %q", rel)
	}
	rel = path.Clean(rel)
	if rel == "." {
		rel = ""
	}
	if rel == ".." || strings.HasPrefix(rel, "../") {
		log.Panicf("model: package path escapes the workspace: %q", rel)
	}
	return Package{workspace: w, path: rel}
}

// Target returns the handle of the target with the given label.  The
// repository part of the label is ignored; the label is resolved in this
// workspace.
func (w Workspace) Target(l label.Label) Target {
	return w.Package(l.Pkg).Target(l.Name)
}

// Info returns the loaded workspace info.
func (w Workspace) Info(ctx context.Context) (*WorkspaceInfo, error) {
	return getInfo[*WorkspaceInfo](ctx, w)
}

func (w Workspace) createInfo(ctx context.Context, parent Info) (Info, error) {
	if !w.Exists() {
		return nil, &NotExistError{Element: w}
	}
	return newWorkspaceInfo(ctx, w)
}

func findBoundaryFile(dir string) (string, bool) {
	for _, name := range BoundaryFiles {
		filename := filepath.Join(dir, name)
		if info, err := os.Stat(filename); err == nil && !info.IsDir() {
			return filename, true
		}
	}
	return "", false
}
