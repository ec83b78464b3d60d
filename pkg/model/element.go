// Package model represents a bazel workspace as a tree of cheap, comparable
// element handles (workspace, package, target, build file) whose expensive
// info is loaded lazily, at most once per cache generation, and cached by the
// owning Model.
package model

import (
	"context"
	"fmt"
)

// Kind enumerates the element variants.
type Kind int

const (
	ModelKind Kind = iota
	WorkspaceKind
	PackageKind
	TargetKind
	BuildFileKind
)

func (k Kind) String() string {
	switch k {
	case ModelKind:
		return "model"
	case WorkspaceKind:
		return "workspace"
	case PackageKind:
		return "package"
	case TargetKind:
		return "target"
	case BuildFileKind:
		return "build file"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Element is a handle to a node of the model tree.  Handles are immutable,
// comparable with ==, and constructed without I/O.  The set of
// implementations is closed: *Model, Workspace, Package, Target and
// BuildFile.
type Element interface {
	// Kind reports the variant.
	Kind() Kind
	// Parent returns the enclosing element, or nil for the *Model.
	Parent() Element
	// Location is the file system path used to serialize loads and
	// invalidations of this element.
	Location() string
	// Model returns the model the element belongs to.
	Model() *Model
	fmt.Stringer

	// createInfo performs the I/O to build the element info.  The parent
	// info has been loaded beforehand and is passed in.
	createInfo(ctx context.Context, parent Info) (Info, error)
}

// Info is the loaded payload of an element.
type Info interface {
	// Element returns the owning handle.
	Element() Element
}

// isDescendantOrSelf reports whether e equals ancestor or lies beneath it.
func isDescendantOrSelf(e, ancestor Element) bool {
	for ; e != nil; e = e.Parent() {
		if e == ancestor {
			return true
		}
	}
	return false
}

// getInfo returns the typed info of e, loading it if needed.
func getInfo[I Info](ctx context.Context, e Element) (I, error) {
	info, err := e.Model().getInfo(ctx, e)
	if err != nil {
		var zero I
		return zero, err
	}
	return info.(I), nil
}
