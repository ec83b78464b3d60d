// Package classpath computes the ordered, deduplicated classpath of a set of
// targets from the classpath aspect output, the jdeps records of their
// compilations and the IDE projects currently provisioned.
package classpath

import (
	"fmt"

	"github.com/bazelbuild/bazel-gazelle/label"
)

// AccessRuleKind says how the symbols matched by an access rule may be used.
type AccessRuleKind int

const (
	Accessible AccessRuleKind = iota
	Discouraged
	NonAccessible
)

func (k AccessRuleKind) String() string {
	switch k {
	case Accessible:
		return "accessible"
	case Discouraged:
		return "discouraged"
	case NonAccessible:
		return "nonaccessible"
	default:
		return fmt.Sprintf("AccessRuleKind(%d)", int(k))
	}
}

func (k AccessRuleKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// AccessRule applies a kind to the type paths matching Pattern.
type AccessRule struct {
	Pattern string         `json:"pattern"`
	Kind    AccessRuleKind `json:"kind"`
}

// allTypes matches every type path.
const allTypes = "**"

func accessibleRules() []AccessRule {
	return []AccessRule{{Pattern: allTypes, Kind: Accessible}}
}

func discouragedRules() []AccessRule {
	return []AccessRule{{Pattern: allTypes, Kind: Discouraged}}
}

// EntryKind distinguishes library and project entries.
type EntryKind int

const (
	LibraryEntry EntryKind = iota
	ProjectEntry
)

func (k EntryKind) String() string {
	switch k {
	case LibraryEntry:
		return "library"
	case ProjectEntry:
		return "project"
	default:
		return fmt.Sprintf("EntryKind(%d)", int(k))
	}
}

func (k EntryKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Entry is a resolved classpath entry: a jar on disk or a reference to
// another IDE project.
type Entry struct {
	Kind EntryKind `json:"kind"`
	// Path is the absolute jar path of a library entry.
	Path string `json:"path,omitempty"`
	// SourcePath is the absolute source jar path of a library entry.
	SourcePath string `json:"source_path,omitempty"`
	// Project is the referenced project of a project entry.
	Project *Project `json:"project,omitempty"`

	AccessRules []AccessRule `json:"access_rules,omitempty"`
	Exported    bool         `json:"exported,omitempty"`
	TestOnly    bool         `json:"test_only,omitempty"`

	// Label is the target the entry was resolved from, when known.
	Label label.Label `json:"-"`
}

func newLibraryEntry(path, sourcePath string, from label.Label) *Entry {
	return &Entry{
		Kind:       LibraryEntry,
		Path:       path,
		SourcePath: sourcePath,
		Label:      from,
	}
}

func newProjectEntry(p *Project, from label.Label) *Entry {
	return &Entry{
		Kind:    ProjectEntry,
		Project: p,
		Label:   from,
	}
}

// key identifies the entry in the classpath: the jar path, or the resource
// path of the project.
func (e *Entry) key() string {
	if e.Kind == ProjectEntry {
		return "project:" + e.Project.Path
	}
	return e.Path
}

func (e *Entry) String() string {
	var s string
	switch e.Kind {
	case ProjectEntry:
		s = "project " + e.Project.Path
	default:
		s = "library " + e.Path
	}
	if e.Exported {
		s += " exported"
	}
	if e.TestOnly {
		s += " test"
	}
	for _, rule := range e.AccessRules {
		s += fmt.Sprintf(" %s=%s", rule.Pattern, rule.Kind)
	}
	return s
}
