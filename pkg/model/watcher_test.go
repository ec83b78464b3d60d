package model

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stackb/bazel-classpath/pkg/testutil"
)

func TestWatcherInvalidates(t *testing.T) {
	m, ws, runner := newTestModel(t)
	expectInfo(runner, ws)
	runner.On("Query", mock.Anything, ws.Root(), "//lib:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//lib:core", "java_library")), nil).
		Once()
	runner.On("Query", mock.Anything, ws.Root(), "//app:all", keepGoing).
		Return(testutil.QueryResult(testutil.Rule("//app:main", "java_binary")), nil).
		Once()

	var invalidated []Element
	w, err := NewWatcher(m, WithInvalidationCallback(func(e Element) {
		invalidated = append(invalidated, e)
	}))
	require.NoError(t, err)
	defer w.Close()

	ctx := context.Background()
	lib := ws.Package("lib")
	app := ws.Package("app")
	require.NoError(t, w.WatchWorkspace(ws))
	require.NoError(t, w.WatchPackage(lib))
	require.NoError(t, w.WatchPackage(app))

	_, err = lib.Info(ctx)
	require.NoError(t, err)
	_, err = app.Info(ctx)
	require.NoError(t, err)

	for name, tc := range map[string]struct {
		event fsnotify.Event
		want  bool
	}{
		"chmod ignored":     {event: fsnotify.Event{Name: filepath.Join(lib.Dir(), "BUILD.bazel"), Op: fsnotify.Chmod}},
		"source file":       {event: fsnotify.Event{Name: filepath.Join(lib.Dir(), "Core.java"), Op: fsnotify.Write}},
		"unwatched package": {event: fsnotify.Event{Name: filepath.Join(ws.Root(), "docs", "BUILD"), Op: fsnotify.Create}},
		"workspace in pkg":  {event: fsnotify.Event{Name: filepath.Join(lib.Dir(), "WORKSPACE"), Op: fsnotify.Write}},
	} {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, w.handleEvent(ctx, tc.event))
			assert.Empty(t, invalidated)
		})
	}

	// suspended: nothing happens
	suspension := m.SuspendInvalidation(ws)
	require.NoError(t, w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(lib.Dir(), "BUILD.bazel"), Op: fsnotify.Write}))
	assert.Empty(t, invalidated)
	assert.True(t, m.IsCached(lib))
	suspension.Resume()

	require.NoError(t, w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(lib.Dir(), "BUILD.bazel"), Op: fsnotify.Write}))
	assert.Equal(t, []Element{lib}, invalidated)
	assert.False(t, m.IsCached(lib))
	assert.True(t, m.IsCached(app))

	require.NoError(t, w.handleEvent(ctx, fsnotify.Event{Name: filepath.Join(ws.Root(), "MODULE.bazel"), Op: fsnotify.Write}))
	assert.Equal(t, []Element{lib, ws}, invalidated)
	assert.False(t, m.IsCached(ws))
	assert.False(t, m.IsCached(app))
}

func TestWatcherRunStopsOnCancel(t *testing.T) {
	m, _, _ := newTestModel(t)
	w, err := NewWatcher(m)
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
}
