package model

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bazelbuild/bazel-gazelle/testtools"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/bazel/mocks"
	"github.com/stackb/bazel-classpath/pkg/testutil"
)

var keepGoing = bazel.QueryOptions{KeepGoing: true}

var testWorkspaceFiles = []testtools.FileSpec{
	{Path: "WORKSPACE", Content: `workspace(name = "legacy")`},
	{Path: "MODULE.bazel", Content: `module(name = "example", version = "1.0")`},
	{
		Path: "lib/BUILD.bazel",
		Content: `
load("@rules_java//java:defs.bzl", jlib = "java_library")

package(default_visibility = ["//visibility:public"])

jlib(
    name = "core",
    srcs = glob(["*.java"]),
)
`,
	},
	{Path: "app/BUILD", Content: `java_binary(name = "main", deps = ["//lib:core"])`},
	{Path: "docs/README.md", Content: "no build file here"},
}

// newTestModel creates a model over a fresh workspace and a runner mock
// that answers `bazel info`.
func newTestModel(t *testing.T) (*Model, Workspace, *mocks.Runner) {
	t.Helper()
	dir, _, cleanup := testutil.MustPrepareTestFiles(t, testWorkspaceFiles)
	t.Cleanup(cleanup)

	runner := mocks.NewRunner(t)
	m, err := New(runner, WithLogger(testutil.NewTestLogger(t)))
	require.NoError(t, err)
	t.Cleanup(m.Close)

	return m, m.Workspace(dir), runner
}

func expectInfo(runner *mocks.Runner, ws Workspace) *mock.Call {
	return runner.On("Info", mock.Anything, ws.Root()).
		Return([]byte(testutil.InfoOutput("/output_base")), nil).
		Once()
}

func TestWorkspaceInfo(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	info, err := ws.Info(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "/output_base/execroot/_main", info.ExecutionRoot())
	assert.Equal(t, "/output_base", info.OutputBase())
	assert.Equal(t, "release 7.1.0", info.Release())
	assert.Equal(t, "example", info.Name())
	require.NotNil(t, info.Version())
	assert.Equal(t, Version{Major: 7, Minor: 1}, *info.Version())
	assert.True(t, m.IsCached(ws))

	again, err := ws.Info(context.Background())
	require.NoError(t, err)
	assert.Same(t, info, again)
}

func TestWorkspaceInfoMissingKeys(t *testing.T) {
	_, ws, runner := newTestModel(t)
	runner.On("Info", mock.Anything, ws.Root()).
		Return([]byte("release: release 7.1.0\nexecution_root: /x\n"), nil).
		Once()

	_, err := ws.Info(context.Background())
	require.Error(t, err)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ws.Root(), loadErr.Element.Location())

	var missing *MissingInfoKeysError
	require.ErrorAs(t, err, &missing)
	assert.Contains(t, missing.Missing, InfoOutputBase)
	assert.Equal(t, "/x", missing.Output[InfoExecutionRoot])
	assert.Contains(t, err.Error(), "execution_root: /x")
}

func TestWorkspaceNotExist(t *testing.T) {
	runner := mocks.NewRunner(t)
	m, err := New(runner)
	require.NoError(t, err)
	defer m.Close()

	ws := m.Workspace(t.TempDir())
	assert.False(t, ws.Exists())

	_, err = ws.Info(context.Background())
	assert.ErrorIs(t, err, fs.ErrNotExist)
	runner.AssertNotCalled(t, "Info", mock.Anything, mock.Anything)
}

func TestWorkspaceBoundaryFile(t *testing.T) {
	for name, tc := range map[string]struct {
		files []string
		want  string
	}{
		"none":           {},
		"WORKSPACE":      {files: []string{"WORKSPACE"}, want: "WORKSPACE"},
		"bazel":          {files: []string{"WORKSPACE.bazel"}, want: "WORKSPACE.bazel"},
		"bzlmod":         {files: []string{"WORKSPACE.bzlmod"}, want: "WORKSPACE.bzlmod"},
		"preference":     {files: []string{"WORKSPACE.bzlmod", "WORKSPACE.bazel", "WORKSPACE"}, want: "WORKSPACE"},
		"bazel > bzlmod": {files: []string{"WORKSPACE.bzlmod", "WORKSPACE.bazel"}, want: "WORKSPACE.bazel"},
	} {
		t.Run(name, func(t *testing.T) {
			var specs []testtools.FileSpec
			for _, f := range tc.files {
				specs = append(specs, testtools.FileSpec{Path: f})
			}
			specs = append(specs, testtools.FileSpec{Path: "MODULE.bazel"})
			dir, _, cleanup := testutil.MustPrepareTestFiles(t, specs)
			defer cleanup()

			m, err := New(mocks.NewRunner(t))
			require.NoError(t, err)
			defer m.Close()

			got, ok := m.Workspace(dir).BoundaryFile()
			if tc.want == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, filepath.Join(dir, tc.want), got)
		})
	}
}

func TestFindWorkspace(t *testing.T) {
	m, ws, _ := newTestModel(t)

	got, err := m.FindWorkspace(filepath.Join(ws.Root(), "docs"))
	require.NoError(t, err)
	assert.Equal(t, ws, got)

	_, err = m.FindWorkspace(t.TempDir())
	assert.ErrorIs(t, err, fs.ErrNotExist)

	if diff := cmp.Diff([]string{ws.Root()}, rootsOf(m.Workspaces())); diff != "" {
		t.Errorf("workspaces (-want +got):\n%s", diff)
	}
}

func rootsOf(workspaces []Workspace) []string {
	var roots []string
	for _, ws := range workspaces {
		roots = append(roots, ws.Root())
	}
	return roots
}

func TestPackageHandles(t *testing.T) {
	m, ws, _ := newTestModel(t)

	for name, tc := range map[string]struct {
		rel  string
		want string
	}{
		"root":           {rel: "", want: ""},
		"dot":            {rel: ".", want: ""},
		"trailing slash": {rel: "lib/", want: "lib"},
		"nested":         {rel: "a/b/../c", want: "a/c"},
	} {
		t.Run(name, func(t *testing.T) {
			p := ws.Package(tc.rel)
			assert.Equal(t, tc.want, p.Path())
			assert.Equal(t, ws.Package(tc.want), p)
		})
	}

	assert.Panics(t, func() { ws.Package("/abs") })
	assert.Panics(t, func() { ws.Package("../outside") })
	assert.Panics(t, func() { m.Workspace("relative") })

	assert.True(t, ws.Package("lib").Exists())
	assert.True(t, ws.Package("app").Exists())
	assert.False(t, ws.Package("docs").Exists())

	bf, ok := ws.Package("app").BuildFile()
	require.True(t, ok)
	assert.Equal(t, "BUILD", bf.Name())
	bf, ok = ws.Package("lib").BuildFile()
	require.True(t, ok)
	assert.Equal(t, "BUILD.bazel", bf.Name())
}

func TestPackageInfo(t *testing.T) {
	_, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(
			testutil.Rule("//lib:core", "java_library"),
			testutil.Rule("//lib:util", "java_library"),
			testutil.Rule("//other:stray", "java_library"),
		), nil).
		Once()

	p := ws.Package("lib")
	info, err := p.Info(context.Background())
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"core", "util"}, info.TargetNames()); diff != "" {
		t.Errorf("target names (-want +got):\n%s", diff)
	}
	assert.Equal(t, []Target{p.Target("core"), p.Target("util")}, info.Targets())
	assert.Equal(t, "BUILD.bazel", info.BuildFile().Name())
}

func TestPackageNotExist(t *testing.T) {
	_, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	_, err := ws.Package("docs").Info(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	var notExist *NotExistError
	require.ErrorAs(t, err, &notExist)
	assert.Equal(t, ws.Package("docs"), notExist.Element)
}

func TestSingleFlight(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	var calls int
	var mu sync.Mutex
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Run(func(mock.Arguments) {
			mu.Lock()
			calls++
			mu.Unlock()
			time.Sleep(20 * time.Millisecond)
		}).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()

	const n = 16
	infos := make([]*PackageInfo, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			infos[i], errs[i] = ws.Package("lib").Info(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, infos[0], infos[i])
	}
	assert.Equal(t, 1, calls)
	assert.True(t, m.IsCached(ws.Package("lib")))
}

func TestParentBeforeChild(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	var workspaceCached bool
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Run(func(mock.Arguments) {
			workspaceCached = m.IsCached(ws)
		}).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()

	// loading the target pulls in the package and, before it, the workspace.
	info, err := ws.Target(labelOf(t, "//lib:core")).Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "java_library", info.RuleClass())
	assert.True(t, workspaceCached)
	assert.True(t, m.IsCached(ws.Package("lib")))
}

func TestTargetInfo(t *testing.T) {
	_, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//app:all", keepGoing).
		Return(testutil.QueryResult(
			testutil.Rule("//app:main", "java_binary",
				testutil.LabelListAttr("deps", "//lib:core"),
				testutil.StringAttr("main_class", "com.example.Main"),
				testutil.BoolAttr("testonly", false),
			),
		), nil).
		Once()

	ctx := context.Background()
	main := ws.Package("app").Target("main")
	info, err := main.Info(ctx)
	require.NoError(t, err)

	assert.Equal(t, "//app:main", info.Label().String())
	assert.Equal(t, "java_binary", info.RuleClass())
	assert.Equal(t, []string{"//lib:core"}, info.Attributes().StringList("deps"))
	mainClass, ok := info.Attributes().String("main_class")
	assert.True(t, ok)
	assert.Equal(t, "com.example.Main", mainClass)

	exists, err := main.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists)

	missing := ws.Package("app").Target("missing")
	exists, err = missing.Exists(ctx)
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = missing.Info(ctx)
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestLoadFailureIsNotCached(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(nil, errors.New("server crashed")).
		Once()
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()

	p := ws.Package("lib")
	_, err := p.Info(context.Background())
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, p.Dir(), loadErr.Element.Location())
	assert.Contains(t, err.Error(), "server crashed")
	assert.Contains(t, err.Error(), p.Dir())
	assert.False(t, m.IsCached(p))

	info, err := p.Info(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"core"}, info.TargetNames())
}

func TestLoadCanceled(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	ctx, cancel := context.WithCancel(context.Background())
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Run(func(args mock.Arguments) {
			cancel()
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, fmt.Errorf("query interrupted: %w", context.Canceled)).
		Once()

	p := ws.Package("lib")
	_, err := p.Info(ctx)
	require.Error(t, err)

	var canceled *CanceledError
	require.ErrorAs(t, err, &canceled)
	assert.ErrorIs(t, err, context.Canceled)
	var loadErr *LoadError
	assert.False(t, errors.As(err, &loadErr), "cancellation must not look like a failure")
	assert.False(t, m.IsCached(p))
}

func TestLoadCanceledWhileWaitingForLock(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	_, err := ws.Info(context.Background())
	require.NoError(t, err)

	// an invalidation of the workspace is in progress.
	unlock, ok := m.locks.TryLock(ws.Root())
	require.True(t, ok)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	job := newOpenJob(m, ws.Package("lib"))
	_, err = job.open(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, jobCancelled, job.State())
	runner.AssertNotCalled(t, "Query", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestOpenJobOpenTwicePanics(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)

	job := newOpenJob(m, ws)
	_, err := job.open(context.Background())
	require.NoError(t, err)
	assert.Equal(t, jobCompleted, job.State())
	assert.Panics(t, func() { job.open(context.Background()) })
}

func TestInvalidate(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws).Times(2)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Times(3)
	runner.On("Query", mock.Anything, ws.Root(), "//app:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//app:main", "java_binary")), nil).
		Once()

	ctx := context.Background()
	lib := ws.Package("lib")
	core := lib.Target("core")
	app := ws.Package("app")

	_, err := core.Info(ctx)
	require.NoError(t, err)
	_, err = app.Info(ctx)
	require.NoError(t, err)

	// package level: target goes along, siblings and parents stay.
	require.NoError(t, m.Invalidate(ctx, lib))
	assert.False(t, m.IsCached(lib))
	assert.False(t, m.IsCached(core))
	assert.True(t, m.IsCached(app))
	assert.True(t, m.IsCached(ws))

	_, err = core.Info(ctx)
	require.NoError(t, err)
	assert.True(t, m.IsCached(core))

	// workspace level: everything beneath.
	require.NoError(t, m.Invalidate(ctx, ws))
	for _, e := range []Element{ws, lib, core, app} {
		assert.False(t, m.IsCached(e), e.String())
	}

	_, err = lib.Info(ctx)
	require.NoError(t, err)
	m.InvalidateAll()
	assert.False(t, m.IsCached(lib))
}

func TestSuspendInvalidation(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()

	ctx := context.Background()
	lib := ws.Package("lib")
	_, err := lib.Info(ctx)
	require.NoError(t, err)

	outer := m.SuspendInvalidation(ws)
	inner := m.SuspendInvalidation(ws)
	assert.True(t, m.IsInvalidationSuspended(ws))
	assert.True(t, m.IsInvalidationSuspended(lib.Target("core")))
	assert.False(t, m.IsInvalidationSuspended(m.Workspace("/elsewhere")))

	invalidated, err := m.InvalidateIfNotSuspended(ctx, lib)
	require.NoError(t, err)
	assert.False(t, invalidated)
	assert.True(t, m.IsCached(lib))

	inner.Resume()
	inner.Resume()
	assert.True(t, m.IsInvalidationSuspended(lib), "outer suspension still holds")

	outer.Resume()
	assert.False(t, m.IsInvalidationSuspended(lib))

	invalidated, err = m.InvalidateIfNotSuspended(ctx, lib)
	require.NoError(t, err)
	assert.True(t, invalidated)
	assert.False(t, m.IsCached(lib))

	assert.Panics(t, func() { m.suspensions.pop(lib) })
}

func TestExternalRepository(t *testing.T) {
	_, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//external:*", keepGoing).
		Return(nil, errors.New("transient")).
		Once()
	runner.On("Query", mock.Anything, ws.Root(), "//external:*", keepGoing).
		Return(testutil.QueryResult(
			testutil.Rule("//external:other_ws", "local_repository",
				testutil.StringAttr("path", "/src/other")),
			testutil.Rule("//external:maven", "coursier_fetch"),
		), nil).
		Once()

	ctx := context.Background()
	info, err := ws.Info(ctx)
	require.NoError(t, err)

	_, _, err = info.ExternalRepository(ctx, "other_ws")
	require.Error(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			attrs, ok, err := info.ExternalRepository(ctx, "other_ws")
			assert.NoError(t, err)
			assert.True(t, ok)
			if attrs != nil {
				path, _ := attrs.String("path")
				assert.Equal(t, "/src/other", path)
			}
		}()
	}
	wg.Wait()

	names, err := info.ExternalRepositoryNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"maven", "other_ws"}, names)
}

func TestBuildFileInfo(t *testing.T) {
	_, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()

	bf, ok := ws.Package("lib").BuildFile()
	require.True(t, ok)
	info, err := bf.Info(context.Background())
	require.NoError(t, err)

	require.Len(t, info.MacroCalls(), 1)
	call := info.MacroCalls()[0]
	assert.Equal(t, "jlib", call.Name)
	assert.Equal(t, "java_library", call.ResolvedFunctionName)
	assert.Len(t, info.CallsTo("java_library"), 1)
	require.NotNil(t, info.PackageCall())
	assert.Equal(t, "package", info.PackageCall().Name)
	require.Len(t, info.LoadStatements(), 1)
}

func TestVersion(t *testing.T) {
	for name, tc := range map[string]struct {
		release string
		want    Version
		ok      bool
	}{
		"release":       {release: "release 7.1.0", want: Version{7, 1, 0, ""}, ok: true},
		"rc":            {release: "release 8.0.0rc2", want: Version{8, 0, 0, "rc2"}, ok: true},
		"pre":           {release: "release 8.0.0-pre.20240101.1", want: Version{8, 0, 0, "-pre.20240101.1"}, ok: true},
		"major only":    {release: "release 6", want: Version{Major: 6}, ok: true},
		"development":   {release: "development version"},
		"no prefix":     {release: "7.1.0"},
		"empty":         {},
		"no digits":     {release: "release abc"},
		"too many dots": {release: "release 1.2.3.4"},
	} {
		t.Run(name, func(t *testing.T) {
			got, ok := ParseRelease(tc.release)
			assert.Equal(t, tc.ok, ok)
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}

	v7, _ := ParseVersion("7.1.0")
	rc, _ := ParseVersion("7.1.0rc1")
	v6, _ := ParseVersion("6.4.0")
	assert.Equal(t, 1, v7.Compare(rc))
	assert.Equal(t, -1, v6.Compare(v7))
	assert.Equal(t, 0, v7.Compare(v7))
	assert.True(t, v7.AtLeast(7, 0))
	assert.False(t, v6.AtLeast(7, 0))
	assert.Equal(t, "7.1.0rc1", rc.String())
}
