package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/stackb/bazel-classpath/pkg/collections"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(filename, []byte(content), 0644))
	return filename
}

func TestLoad(t *testing.T) {
	for name, tc := range map[string]struct {
		content string
		env     map[string]string
		want    *Config
		wantErr string
	}{
		"empty file yields defaults": {
			want: Default(),
		},
		"full": {
			content: `
bazel = "bazelisk"
debug = true
directories = ["java/...", "-java/experimental"]
targets = ["//tools:codegen"]
provisioning = "target"
build_flags = ["--config=ci"]
aspect = "//aspect:a.bzl%a"
output_group = "out"
cache_size = 10
parallelism = 2

[project_mappings]
"@maven//:guava" = "project:/guava"
`,
			want: &Config{
				Bazel:           "bazelisk",
				Debug:           true,
				Directories:     []string{"java/...", "-java/experimental"},
				Targets:         []string{"//tools:codegen"},
				Provisioning:    ProvisionPerTarget,
				BuildFlags:      []string{"--config=ci"},
				Aspect:          "//aspect:a.bzl%a",
				OutputGroup:     "out",
				CacheSize:       10,
				Parallelism:     2,
				ProjectMappings: map[string]string{"@maven//:guava": "project:/guava"},
			},
		},
		"env overrides": {
			content: `bazel = "bazelisk"`,
			env: map[string]string{
				string(BazelEnvVar): "/opt/bazel",
				string(DebugEnvVar): "1",
			},
			want: func() *Config {
				c := Default()
				c.Bazel = "/opt/bazel"
				c.Debug = true
				return c
			}(),
		},
		"parallelism env overrides file": {
			content: `parallelism = 2`,
			env:     map[string]string{string(ParallelismEnvVar): " 8 "},
			want: func() *Config {
				c := Default()
				c.Parallelism = 8
				return c
			}(),
		},
		"malformed parallelism env ignored": {
			content: `parallelism = 2`,
			env:     map[string]string{string(ParallelismEnvVar): "many"},
			want: func() *Config {
				c := Default()
				c.Parallelism = 2
				return c
			}(),
		},
		"parallelism env validated": {
			env:     map[string]string{string(ParallelismEnvVar): "0"},
			wantErr: "parallelism must be positive",
		},
		"unknown key": {
			content: `colour = "blue"`,
			wantErr: "unknown keys: colour",
		},
		"syntax error": {
			content: `bazel = `,
			wantErr: "parsing config file",
		},
		"bad provisioning": {
			content: `provisioning = "workspace"`,
			wantErr: `invalid provisioning "workspace"`,
		},
		"bad parallelism": {
			content: `parallelism = 0`,
			wantErr: "parallelism must be positive",
		},
		"bad target": {
			content: `targets = ["//a\tb:c"]`,
			wantErr: "invalid target",
		},
		"bad mapping scheme": {
			content: "[project_mappings]\n\"//a:b\" = \"file:/a\"\n",
			wantErr: `unsupported scheme "file"`,
		},
	} {
		t.Run(name, func(t *testing.T) {
			t.Setenv(string(BazelEnvVar), "")
			t.Setenv(string(DebugEnvVar), "")
			t.Setenv(string(ParallelismEnvVar), "")
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			got, err := Load(writeConfig(t, tc.content))
			if tc.wantErr != "" {
				require.ErrorContains(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadWorkspaceMissingFile(t *testing.T) {
	t.Setenv(string(BazelEnvVar), "")
	t.Setenv(string(DebugEnvVar), "")
	t.Setenv(string(ParallelismEnvVar), "")

	got, err := LoadWorkspace(t.TempDir())
	require.NoError(t, err)
	if diff := cmp.Diff(Default(), got); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestDirectoryIntents(t *testing.T) {
	c := &Config{Directories: []string{"java/...", " -java/experimental ", "", "+tools"}}
	want := []*collections.Intent{
		{Value: "java/...", Want: true},
		{Value: "java/experimental", Want: false},
		{Value: "tools", Want: true},
	}
	if diff := cmp.Diff(want, c.DirectoryIntents()); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestMappingsSorted(t *testing.T) {
	c := &Config{ProjectMappings: map[string]string{
		"//z:z": "project:/z",
		"//a:a": "project:/a",
	}}
	got, err := c.Mappings()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, label.New("", "a", "a"), got[0].Label)
	require.Equal(t, "project:/z", got[1].URI)
}
