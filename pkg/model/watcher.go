package model

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// workspaceFiles are the files of a workspace root whose change invalidates
// the whole workspace.
var workspaceFiles = map[string]bool{
	"WORKSPACE":        true,
	"WORKSPACE.bazel":  true,
	"WORKSPACE.bzlmod": true,
	ModuleFile:         true,
	".bazelrc":         true,
	".bazelversion":    true,
}

// Watcher invalidates cached infos when the files they were loaded from
// change on disk.  Invalidation honors suspensions.
type Watcher struct {
	model     *Model
	fsWatcher *fsnotify.Watcher

	mu         sync.RWMutex
	workspaces map[string]Workspace
	packages   map[string]Package

	onInvalidate func(Element)
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher) *Watcher

// WithInvalidationCallback sets a function called after each invalidation.
func WithInvalidationCallback(fn func(Element)) WatcherOption {
	return func(w *Watcher) *Watcher {
		w.onInvalidate = fn
		return w
	}
}

// NewWatcher creates a Watcher for the model.
func NewWatcher(m *Model, options ...WatcherOption) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	w := &Watcher{
		model:        m,
		fsWatcher:    fsWatcher,
		workspaces:   make(map[string]Workspace),
		packages:     make(map[string]Package),
		onInvalidate: func(Element) {},
	}
	for _, opt := range options {
		w = opt(w)
	}
	return w, nil
}

// WatchWorkspace watches the boundary files of the workspace.
func (w *Watcher) WatchWorkspace(ws Workspace) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.workspaces[ws.root]; ok {
		return nil
	}
	if err := w.fsWatcher.Add(ws.root); err != nil {
		return fmt.Errorf("watching %s: %w", ws.root, err)
	}
	w.workspaces[ws.root] = ws
	return nil
}

// WatchPackage watches the build file of the package.
func (w *Watcher) WatchPackage(p Package) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := p.Dir()
	if _, ok := w.packages[dir]; ok {
		return nil
	}
	// the root package directory may already be watched for the workspace.
	if _, ok := w.workspaces[dir]; !ok {
		if err := w.fsWatcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	w.packages[dir] = p
	return nil
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// Run processes file events until the context is done or the watcher is
// closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			if err := w.handleEvent(ctx, event); err != nil {
				return err
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.model.logger.Warn().Err(err).Msg("file watcher error")
		}
	}
}

// affected returns the element whose info depends on the named file.
func (w *Watcher) affected(name string) (Element, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	dir, base := filepath.Split(name)
	dir = filepath.Clean(dir)

	if workspaceFiles[base] {
		if ws, ok := w.workspaces[dir]; ok {
			return ws, true
		}
	}
	for _, buildFileName := range BuildFileNames {
		if base != buildFileName {
			continue
		}
		if p, ok := w.packages[dir]; ok {
			return p, true
		}
	}
	return nil, false
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) error {
	if event.Op == fsnotify.Chmod {
		return nil
	}
	e, ok := w.affected(event.Name)
	if !ok {
		return nil
	}
	invalidated, err := w.model.InvalidateIfNotSuspended(ctx, e)
	if err != nil {
		return err
	}
	if invalidated {
		w.model.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Str("element", e.String()).Msg("file changed")
		w.onInvalidate(e)
	}
	return nil
}
