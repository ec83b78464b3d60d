package jdeps

import (
	"path/filepath"
	"testing"

	depspb "github.com/bazelbuild/buildtools/deps_proto"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/testing/protocmp"
)

func TestCompileJars(t *testing.T) {
	for name, tc := range map[string]struct {
		deps []*depspb.Dependency
		want []*depspb.Dependency
	}{
		"degenerate": {},
		"filters unused and incomplete": {
			deps: []*depspb.Dependency{
				NewDependency("a.jar", depspb.Dependency_EXPLICIT),
				NewDependency("b.jar", depspb.Dependency_UNUSED),
				NewDependency("c.jar", depspb.Dependency_IMPLICIT),
				NewDependency("d.jar", depspb.Dependency_INCOMPLETE),
			},
			want: []*depspb.Dependency{
				NewDependency("a.jar", depspb.Dependency_EXPLICIT),
				NewDependency("c.jar", depspb.Dependency_IMPLICIT),
			},
		},
	} {
		t.Run(name, func(t *testing.T) {
			got := CompileJars(&depspb.Dependencies{Dependency: tc.deps})
			if diff := cmp.Diff(tc.want, got, protocmp.Transform()); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestReadFile(t *testing.T) {
	want := &depspb.Dependencies{
		Dependency: []*depspb.Dependency{
			NewDependency("bazel-out/k8-fastbuild/bin/lib/libcore-hjar.jar", depspb.Dependency_EXPLICIT),
			NewDependency("external/maven/guava.jar", depspb.Dependency_IMPLICIT),
		},
		RuleLabel:        proto.String("//app:main"),
		Success:          proto.Bool(true),
		ContainedPackage: []string{"com.example.app"},
	}
	filename := filepath.Join(t.TempDir(), "main.jdeps")
	require.NoError(t, WriteFile(filename, want))

	got, err := ReadFile(filename)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got, protocmp.Transform()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestUnmarshalCompilerOutput(t *testing.T) {
	data, err := proto.Marshal(&depspb.Dependencies{
		Dependency: []*depspb.Dependency{
			NewDependency("lib/core.jar", depspb.Dependency_EXPLICIT),
			NewDependency("lib/unused.jar", depspb.Dependency_UNUSED),
		},
		RuleLabel: proto.String("//x:y"),
	})
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	require.Equal(t, "//x:y", got.GetRuleLabel())
	require.Len(t, got.GetDependency(), 2)
	require.Equal(t, depspb.Dependency_UNUSED, got.GetDependency()[1].GetKind())
	require.Len(t, CompileJars(got), 1)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	data, err := proto.Marshal(&depspb.Dependencies{RuleLabel: proto.String("//x")})
	require.NoError(t, err)
	var b []byte
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = append(b, data...)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	require.Equal(t, "//x", got.GetRuleLabel())
}

func TestUnmarshalTruncated(t *testing.T) {
	data, err := proto.Marshal(&depspb.Dependencies{
		Dependency: []*depspb.Dependency{NewDependency("a.jar", depspb.Dependency_EXPLICIT)},
	})
	require.NoError(t, err)
	_, err = Unmarshal(data[:len(data)-2])
	require.Error(t, err)
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "missing.jdeps"))
	require.Error(t, err)
}
