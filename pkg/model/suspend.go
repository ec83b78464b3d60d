package model

import (
	"log"
	"sync"
)

// suspensions counts, per element, how many callers currently suspend its
// invalidation.
type suspensions struct {
	mu     sync.Mutex
	counts map[Element]int
}

func newSuspensions() *suspensions {
	return &suspensions{counts: make(map[Element]int)}
}

func (s *suspensions) push(e Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[e]++
}

func (s *suspensions) pop(e Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.counts[e]
	if !ok {
		log.Panicf("model: resuming invalidation of %s that was not suspended", e)
	}
	if n == 1 {
		delete(s.counts, e)
	} else {
		s.counts[e] = n - 1
	}
}

func (s *suspensions) suspended(e Element) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ; e != nil; e = e.Parent() {
		if s.counts[e] > 0 {
			return true
		}
	}
	return false
}

// Suspension is the guard returned by SuspendInvalidation.
type Suspension struct {
	model   *Model
	element Element
	once    sync.Once
}

// Resume ends the suspension.  Calling it more than once has no further
// effect.
func (s *Suspension) Resume() {
	s.once.Do(func() {
		s.model.suspensions.pop(s.element)
	})
}

// SuspendInvalidation suspends invalidation of e and everything beneath it
// until the returned guard is resumed.  Suspensions nest: every call must be
// balanced by a Resume, typically deferred.
func (m *Model) SuspendInvalidation(e Element) *Suspension {
	m.suspensions.push(e)
	return &Suspension{model: m, element: e}
}

// IsInvalidationSuspended reports whether invalidation is suspended for e or
// one of its ancestors.
func (m *Model) IsInvalidationSuspended(e Element) bool {
	return m.suspensions.suspended(e)
}
