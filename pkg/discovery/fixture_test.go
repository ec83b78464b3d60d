package discovery

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/bazelbuild/bazel-gazelle/label"
	"github.com/bazelbuild/bazel-gazelle/testtools"
	bqpb "github.com/bazelbuild/buildtools/build_proto"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/bazel/mocks"
	"github.com/stackb/bazel-classpath/pkg/model"
	"github.com/stackb/bazel-classpath/pkg/testutil"
)

// workspaceFiles lays out a workspace with java packages, a broken package
// and directories that discovery must never query.
var workspaceFiles = []testtools.FileSpec{
	{Path: "WORKSPACE"},
	{Path: "java/core/BUILD.bazel"},
	{Path: "java/app/BUILD"},
	{Path: "java/app/README.md"},
	{Path: "java/experimental/BUILD.bazel"},
	{Path: "docs/notes.txt"},
	{Path: "tools/BUILD"},
	{Path: ".ijwb/BUILD"},
	{Path: "bazel-out/BUILD"},
	{Path: "third_party/nested/WORKSPACE"},
	{Path: "third_party/nested/BUILD"},
}

// javaPackages are the query results of the java packages of
// workspaceFiles.
var javaPackages = map[string][][2]string{
	"//java/core:all": {
		{"//java/core:core", "java_library"},
		{"//java/core:gen", "genrule"},
	},
	"//java/app:all": {
		{"//java/app:app", "java_binary"},
		{"//java/app:app_test", "java_test"},
	},
	"//java/experimental:all": {
		{"//java/experimental:exp", "java_library"},
	},
}

func newTestWorkspace(t *testing.T) (model.Workspace, *mocks.Runner) {
	t.Helper()
	ws, runner, _ := newWorkspace(t, workspaceFiles, javaPackages)
	runner.On("Query", mock.Anything, ws.Root(), "//tools:all", bazel.QueryOptions{KeepGoing: true}).
		Return(nil, errors.New("syntax error in tools/BUILD")).
		Maybe()
	return ws, runner
}

// newWorkspace writes the files and mocks the package queries, returning
// the workspace and its execution root.
func newWorkspace(t *testing.T, files []testtools.FileSpec, packages map[string][][2]string) (model.Workspace, *mocks.Runner, string) {
	t.Helper()
	dir, _, cleanup := testutil.MustPrepareTestFiles(t, files)
	t.Cleanup(cleanup)

	outputBase := t.TempDir()
	runner := mocks.NewRunner(t)
	runner.On("Info", mock.Anything, dir).
		Return([]byte(testutil.InfoOutput(outputBase)), nil).
		Maybe()
	for expr, rules := range packages {
		var records []*bqpb.Rule
		for _, r := range rules {
			records = append(records, testutil.Rule(r[0], r[1]))
		}
		runner.On("Query", mock.Anything, dir, expr, bazel.QueryOptions{KeepGoing: true}).
			Return(testutil.QueryResult(records...), nil).
			Maybe()
	}

	m, err := model.New(runner, model.WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return m.Workspace(dir), runner, filepath.Join(outputBase, "execroot", "_main")
}

func mustLabel(t *testing.T, s string) label.Label {
	t.Helper()
	l, err := label.Parse(s)
	require.NoError(t, err)
	return l
}

func targetStrings(targets []model.Target) []string {
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = t.String()
	}
	return names
}
