// Package jdeps reads the dependency records (".jdeps" files) the Java
// compiler writes for each compiled target.
package jdeps

import (
	"fmt"

	depspb "github.com/bazelbuild/buildtools/deps_proto"
	"google.golang.org/protobuf/proto"

	"github.com/stackb/bazel-classpath/pkg/protobuf"
)

// ReadFile reads and decodes a jdeps file.
func ReadFile(filename string) (*depspb.Dependencies, error) {
	deps := &depspb.Dependencies{}
	if err := protobuf.ReadFile(filename, deps); err != nil {
		return nil, err
	}
	return deps, nil
}

// Unmarshal decodes a serialized blaze_deps.Dependencies message.
func Unmarshal(b []byte) (*depspb.Dependencies, error) {
	deps := &depspb.Dependencies{}
	if err := proto.Unmarshal(b, deps); err != nil {
		return nil, fmt.Errorf("unmarshal jdeps: %w", err)
	}
	return deps, nil
}

// WriteFile encodes the dependencies into filename.
func WriteFile(filename string, deps *depspb.Dependencies) error {
	return protobuf.WriteFile(filename, deps)
}

// NewDependency returns a dependency on the jar at path.
func NewDependency(path string, kind depspb.Dependency_Kind) *depspb.Dependency {
	return &depspb.Dependency{
		Path: proto.String(path),
		Kind: kind.Enum(),
	}
}

// CompileJars returns the dependencies that were actually used by the
// compilation (EXPLICIT and IMPLICIT), in file order.  UNUSED and INCOMPLETE
// entries are dropped.
func CompileJars(deps *depspb.Dependencies) []*depspb.Dependency {
	var used []*depspb.Dependency
	for _, dep := range deps.GetDependency() {
		switch dep.GetKind() {
		case depspb.Dependency_EXPLICIT, depspb.Dependency_IMPLICIT:
			used = append(used, dep)
		}
	}
	return used
}
