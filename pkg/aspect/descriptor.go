// Package aspect reads the per-target descriptors written by the classpath
// aspect and indexes them by label.
package aspect

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/bazelbuild/bazel-gazelle/label"
)

// DescriptorSuffix is the file name suffix of descriptor files.
const DescriptorSuffix = ".classpath-info.json"

// DependencyType classifies a dependency edge.
type DependencyType string

const (
	CompileTime DependencyType = "COMPILE_TIME"
	Runtime     DependencyType = "RUNTIME"
)

// Jar is a compiled jar with its optional interface and source jars.  Paths
// are relative to the execution root.
type Jar struct {
	Jar          string `json:"jar,omitempty"`
	InterfaceJar string `json:"interface_jar,omitempty"`
	SourceJar    string `json:"source_jar,omitempty"`
}

// CompileJar returns the jar to compile against: the interface jar when
// there is one.
func (j *Jar) CompileJar() string {
	if j.InterfaceJar != "" {
		return j.InterfaceJar
	}
	return j.Jar
}

// Dependency is a declared dependency edge.
type Dependency struct {
	Target         string         `json:"target"`
	DependencyType DependencyType `json:"dependency_type"`
}

// Descriptor describes the Java outputs and dependency edges of one built
// target.
type Descriptor struct {
	Label string `json:"label"`
	// Kind is the rule class, such as "java_library".
	Kind          string        `json:"kind"`
	Jars          []*Jar        `json:"jars,omitempty"`
	GeneratedJars []*Jar        `json:"generated_jars,omitempty"`
	Jdeps         []string      `json:"jdeps,omitempty"`
	Deps          []*Dependency `json:"deps,omitempty"`
	Exports       []string      `json:"exports,omitempty"`
	RuntimeDeps   []string      `json:"runtime_deps,omitempty"`

	label label.Label
}

// ParsedLabel returns the parsed Label.
func (d *Descriptor) ParsedLabel() label.Label {
	return d.label
}

// DepsOfType returns the labels of the dependency edges of the given type,
// in declaration order.
func (d *Descriptor) DepsOfType(t DependencyType) []label.Label {
	var labels []label.Label
	for _, dep := range d.Deps {
		if dep.DependencyType != t {
			continue
		}
		if l, err := ParseLabel(dep.Target); err == nil {
			labels = append(labels, l)
		}
	}
	return labels
}

// ExportLabels returns the parsed Exports.
func (d *Descriptor) ExportLabels() []label.Label {
	return parseLabels(d.Exports)
}

// RuntimeDepLabels returns the parsed RuntimeDeps.
func (d *Descriptor) RuntimeDepLabels() []label.Label {
	return parseLabels(d.RuntimeDeps)
}

func parseLabels(values []string) []label.Label {
	var labels []label.Label
	for _, v := range values {
		if l, err := ParseLabel(v); err == nil {
			labels = append(labels, l)
		}
	}
	return labels
}

// ParseLabel parses a label written by the aspect.  With bzlmod, bazel
// writes main repository labels in canonical form ("@@//lib:core"); these
// are returned as plain workspace labels ("//lib:core").
func ParseLabel(s string) (label.Label, error) {
	l, err := label.Parse(s)
	if err != nil {
		return label.NoLabel, err
	}
	if l.Repo == "@" {
		return label.New("", l.Pkg, l.Name), nil
	}
	return l, nil
}

// ParseDescriptor decodes a descriptor.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, err
	}
	if d.Label == "" {
		return nil, fmt.Errorf("descriptor has no label")
	}
	l, err := ParseLabel(d.Label)
	if err != nil {
		return nil, fmt.Errorf("descriptor label %q: %w", d.Label, err)
	}
	d.label = l
	return &d, nil
}

// ReadDescriptor reads a descriptor file.
func ReadDescriptor(filename string) (*Descriptor, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read %q: %w", filename, err)
	}
	d, err := ParseDescriptor(data)
	if err != nil {
		return nil, fmt.Errorf("parse %q: %w", filename, err)
	}
	return d, nil
}

// WriteDescriptor writes a descriptor file.
func WriteDescriptor(filename string, d *Descriptor) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write %q: %w", filename, err)
	}
	return nil
}
