package model

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/stackb/bazel-classpath/pkg/bazel"
	"github.com/stackb/bazel-classpath/pkg/cache"
)

// Option configures a Model.
type Option func(*Model) *Model

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Model) *Model {
		m.logger = logger
		return m
	}
}

// WithCacheSize bounds the number of cached infos.
func WithCacheSize(size int) Option {
	return func(m *Model) *Model {
		m.cacheSize = size
		return m
	}
}

// WithRegisterer registers the info cache metrics.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(m *Model) *Model {
		m.registerer = r
		return m
	}
}

// Model is the root of the element tree.  It owns the info cache, the path
// locks that serialize loads, the invalidation suspensions and the registry
// of known workspaces.  A Model must be created before any element is used
// and closed once at shutdown.
type Model struct {
	runner     bazel.Runner
	logger     zerolog.Logger
	cacheSize  int
	registerer prometheus.Registerer

	cache       *cache.Cache[Element, Info]
	locks       *pathLocks
	suspensions *suspensions

	mu         sync.Mutex
	workspaces map[string]Workspace
}

// New creates a Model that runs bazel through the given runner.
func New(runner bazel.Runner, options ...Option) (*Model, error) {
	m := &Model{
		runner:      runner,
		logger:      zerolog.Nop(),
		cacheSize:   cache.DefaultSize,
		locks:       newPathLocks(),
		suspensions: newSuspensions(),
		workspaces:  make(map[string]Workspace),
	}
	for _, opt := range options {
		m = opt(m)
	}

	var cacheOptions []cache.Option
	if m.registerer != nil {
		cacheOptions = append(cacheOptions, cache.WithRegisterer(m.registerer))
	}
	infos, err := cache.New[Element, Info](m.cacheSize, cacheOptions...)
	if err != nil {
		return nil, err
	}
	m.cache = infos

	return m, nil
}

// Close tears the model down.  Elements must not be used afterwards.
func (m *Model) Close() {
	m.cache.Close()
}

// Runner returns the bazel runner.
func (m *Model) Runner() bazel.Runner {
	return m.runner
}

// Logger returns the model logger.
func (m *Model) Logger() *zerolog.Logger {
	return &m.logger
}

// Kind implements Element.
func (m *Model) Kind() Kind { return ModelKind }

// Parent implements Element.  The model has no parent.
func (m *Model) Parent() Element { return nil }

// Location implements Element.  The model has no location.
func (m *Model) Location() string { return "" }

// Model implements Element.
func (m *Model) Model() *Model { return m }

func (m *Model) String() string { return "model" }

func (m *Model) createInfo(ctx context.Context, parent Info) (Info, error) {
	log.Panicln("model: the root element has no info")
	return nil, nil
}

// Workspace returns the handle for the workspace rooted at the given
// absolute directory and records it in the registry.
func (m *Model) Workspace(root string) Workspace {
	if !filepath.IsAbs(root) {
		log.Panicf("model: workspace root must be absolute: %q", root)
	}
	root = filepath.Clean(root)

	m.mu.Lock()
	defer m.mu.Unlock()

	if ws, ok := m.workspaces[root]; ok {
		return ws
	}
	ws := Workspace{model: m, root: root}
	m.workspaces[root] = ws
	return ws
}

// Workspaces returns the known workspaces, sorted by root.
func (m *Model) Workspaces() []Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]Workspace, 0, len(m.workspaces))
	for _, ws := range m.workspaces {
		list = append(list, ws)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].root < list[j].root
	})
	return list
}

// FindWorkspace returns the workspace enclosing dir: the nearest directory
// at or above dir holding a workspace boundary file.
func (m *Model) FindWorkspace(dir string) (Workspace, error) {
	root, err := FindWorkspaceRoot(dir)
	if err != nil {
		return Workspace{}, err
	}
	return m.Workspace(root), nil
}

// FindWorkspaceRoot returns the nearest directory at or above dir holding a
// workspace boundary file.
func FindWorkspaceRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("finding workspace for %s: %w", dir, err)
	}
	for current := abs; ; current = filepath.Dir(current) {
		if _, ok := findBoundaryFile(current); ok {
			return current, nil
		}
		if parent := filepath.Dir(current); parent == current {
			break
		}
	}
	return "", fmt.Errorf("no workspace found at or above %s: %w", dir, os.ErrNotExist)
}

// IsCached reports whether the info of e is currently cached.
func (m *Model) IsCached(e Element) bool {
	_, ok := m.cache.GetIfPresent(e)
	return ok
}

// getInfo returns the cached info of e or loads it.
func (m *Model) getInfo(ctx context.Context, e Element) (Info, error) {
	if info, ok := m.cache.GetIfPresent(e); ok {
		return info, nil
	}
	return newOpenJob(m, e).open(ctx)
}

// Invalidate drops the cached info of e and of every element beneath it.
// It waits for in-flight loads overlapping the location of e.
func (m *Model) Invalidate(ctx context.Context, e Element) error {
	if e.Kind() == ModelKind {
		m.InvalidateAll()
		return nil
	}
	unlock, err := m.locks.Lock(ctx, e.Location())
	if err != nil {
		return &CanceledError{Element: e, Err: err}
	}
	defer unlock()

	n := m.cache.InvalidateFunc(func(key Element) bool {
		return isDescendantOrSelf(key, e)
	})
	m.logger.Debug().Str("element", e.String()).Int("dropped", n).Msg("invalidated")
	return nil
}

// InvalidateAll flushes the info cache.
func (m *Model) InvalidateAll() {
	m.cache.InvalidateAll()
	m.logger.Debug().Msg("invalidated all")
}

// InvalidateIfNotSuspended invalidates e unless invalidation is suspended for
// it or one of its ancestors.  It reports whether the invalidation happened.
func (m *Model) InvalidateIfNotSuspended(ctx context.Context, e Element) (bool, error) {
	if m.IsInvalidationSuspended(e) {
		m.logger.Debug().Str("element", e.String()).Msg("invalidation suspended")
		return false, nil
	}
	if err := m.Invalidate(ctx, e); err != nil {
		return false, err
	}
	return true, nil
}
