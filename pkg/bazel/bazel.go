// Package bazel runs the bazel commands the element model and the classpath
// engine depend on: info, query and aspect builds.
package bazel

import (
	"os"
	"path/filepath"

	"github.com/bazelbuild/rules_go/go/tools/bazel"
	shellquote "github.com/kballard/go-shellquote"
)

// the name of an environment variable at runtime
const TEST_TMPDIR = "TEST_TMPDIR"

// Bazel exit codes that matter to callers.
const (
	ExitSuccess          = 0
	ExitBuildFailure     = 1
	ExitCommandLineError = 2
	ExitPartialFailure   = 3
)

// NewTmpDir creates a new temporary directory, honoring TEST_TMPDIR.
func NewTmpDir(prefix string) (string, error) {
	if _, ok := os.LookupEnv(TEST_TMPDIR); ok {
		return bazel.NewTmpDir(prefix)
	}
	return os.MkdirTemp("", prefix)
}

// ParseFlags splits a shell-quoted flag string such as
// `--config=ci --define "x=a b"`.
func ParseFlags(s string) ([]string, error) {
	if s == "" {
		return nil, nil
	}
	return shellquote.Split(s)
}

// QuoteFlags is the inverse of ParseFlags.
func QuoteFlags(flags []string) string {
	return shellquote.Join(flags...)
}

// lockFileName returns the name of the per-workspace lock file within dir.
func lockFileName(dir, digest string) string {
	if len(digest) > 16 {
		digest = digest[:16]
	}
	return filepath.Join(dir, "bazel-classpath-"+digest+".lock")
}
