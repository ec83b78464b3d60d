// Package cache provides the size-bounded info cache shared by the element
// model.  Entries may be evicted at any time; callers reload on a miss.
package cache

import (
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultSize is the default number of entries retained.
const DefaultSize = 10000

// Option configures a Cache.
type Option func(*options)

type options struct {
	registerer prometheus.Registerer
	namespace  string
}

// WithRegisterer registers the cache metrics with the given registerer.
func WithRegisterer(r prometheus.Registerer) Option {
	return func(o *options) {
		o.registerer = r
	}
}

// WithNamespace sets the metrics namespace (default "bazel_classpath").
func WithNamespace(ns string) Option {
	return func(o *options) {
		o.namespace = ns
	}
}

// Cache maps keys to values with put-or-get-cached semantics.  All methods
// are safe for concurrent use.  Using a Cache after Close is a programming
// error.
type Cache[K comparable, V any] struct {
	mu      sync.Mutex
	entries *lru.Cache[K, V]
	closed  bool
	metrics *metrics

	// removing is set under mu while entries are dropped on request, so
	// the eviction callback only counts capacity evictions.
	removing bool
}

// New creates a cache holding at most size entries.
func New[K comparable, V any](size int, opts ...Option) (*Cache[K, V], error) {
	o := &options{namespace: "bazel_classpath"}
	for _, opt := range opts {
		opt(o)
	}
	if size <= 0 {
		size = DefaultSize
	}
	c := &Cache[K, V]{metrics: newMetrics(o.namespace)}
	// The callback runs synchronously inside Add, Remove and Purge, all of
	// which are called with c.mu held.
	entries, err := lru.NewWithEvict[K, V](size, func(K, V) {
		if !c.removing {
			c.metrics.evictions.Inc()
		}
	})
	if err != nil {
		return nil, fmt.Errorf("creating info cache: %w", err)
	}
	c.entries = entries
	if o.registerer != nil {
		if err := c.metrics.register(o.registerer); err != nil {
			return nil, fmt.Errorf("registering cache metrics: %w", err)
		}
	}
	return c, nil
}

// remove runs fn with eviction counting suspended.  Callers hold c.mu.
func (c *Cache[K, V]) remove(fn func()) {
	c.removing = true
	defer func() { c.removing = false }()
	fn()
}

func (c *Cache[K, V]) checkOpen() {
	if c.closed {
		log.Panicln("cache: used after Close")
	}
}

// GetIfPresent returns the cached value for key, if any.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	value, ok := c.entries.Get(key)
	if ok {
		c.metrics.hits.Inc()
	} else {
		c.metrics.misses.Inc()
	}
	return value, ok
}

// PutOrGetCached stores value under key unless a value is already present, in
// which case the previously stored value wins and is returned.
func (c *Cache[K, V]) PutOrGetCached(key K, value V) V {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	if existing, ok := c.entries.Get(key); ok {
		return existing
	}
	c.entries.Add(key, value)
	c.metrics.stores.Inc()
	return value
}

// Invalidate removes the entry for key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	c.remove(func() {
		if c.entries.Remove(key) {
			c.metrics.invalidations.Inc()
		}
	})
}

// InvalidateFunc removes every entry whose key matches the predicate.
func (c *Cache[K, V]) InvalidateFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	var n int
	c.remove(func() {
		for _, key := range c.entries.Keys() {
			if match(key) && c.entries.Remove(key) {
				n++
			}
		}
	})
	c.metrics.invalidations.Add(float64(n))
	return n
}

// InvalidateAll removes every entry.
func (c *Cache[K, V]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()

	c.metrics.invalidations.Add(float64(c.entries.Len()))
	c.remove(c.entries.Purge)
}

// Len returns the number of cached entries.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	return c.entries.Len()
}

// Close tears the cache down.  Any later use panics.
func (c *Cache[K, V]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkOpen()
	c.remove(c.entries.Purge)
	c.closed = true
}
