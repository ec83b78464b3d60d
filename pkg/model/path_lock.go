package model

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dghubble/trie"
)

var errConflict = errors.New("conflict")

// pathLocks is a set of exclusive locks keyed by file system path.  Two locks
// conflict when their paths are equal or one path contains the other, so a
// workspace-level operation serializes against package-level loads under it
// and vice versa.
type pathLocks struct {
	mu     sync.Mutex
	active *trie.PathTrie
	// released is closed (and replaced) whenever a lock is released.
	released chan struct{}
}

func newPathLocks() *pathLocks {
	return &pathLocks{
		active:   trie.NewPathTrie(),
		released: make(chan struct{}),
	}
}

// Lock blocks until the path can be locked or the context is done.  The
// returned function releases the lock; calling it more than once is a no-op.
func (l *pathLocks) Lock(ctx context.Context, path string) (func(), error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		l.mu.Lock()
		if !l.conflicts(path) {
			l.active.Put(path, true)
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() { l.unlock(path) })
			}, nil
		}
		released := l.released
		l.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-released:
		}
	}
}

// TryLock locks the path if that is possible without waiting.
func (l *pathLocks) TryLock(path string) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.conflicts(path) {
		return nil, false
	}
	l.active.Put(path, true)
	var once sync.Once
	return func() {
		once.Do(func() { l.unlock(path) })
	}, true
}

func (l *pathLocks) unlock(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active.Delete(path)
	close(l.released)
	l.released = make(chan struct{})
}

// conflicts must be called with mu held.
func (l *pathLocks) conflicts(path string) bool {
	// the path itself or one of its ancestors
	if err := l.active.WalkPath(path, func(key string, value interface{}) error {
		return errConflict
	}); err != nil {
		return true
	}
	// one of its descendants
	err := l.active.Walk(func(key string, value interface{}) error {
		if isPathPrefix(path, key) {
			return errConflict
		}
		return nil
	})
	return err != nil
}

// isPathPrefix reports whether prefix equals path or is one of its parent
// directories.
func isPathPrefix(prefix, path string) bool {
	if prefix == path {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return strings.HasSuffix(prefix, "/") || path[len(prefix)] == '/'
}
