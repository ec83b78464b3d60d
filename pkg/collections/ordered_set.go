package collections

// OrderedSet is a set that remembers insertion order.  Re-adding an existing
// value does not change its position.
type OrderedSet[T comparable] struct {
	values []T
	index  map[T]int
}

// NewOrderedSet creates a new OrderedSet with the given initial values.
func NewOrderedSet[T comparable](values ...T) *OrderedSet[T] {
	s := &OrderedSet[T]{index: make(map[T]int)}
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Add inserts the value and reports whether it was not already present.
func (s *OrderedSet[T]) Add(value T) bool {
	if _, ok := s.index[value]; ok {
		return false
	}
	s.index[value] = len(s.values)
	s.values = append(s.values, value)
	return true
}

// Contains reports whether the value is a member of the set.
func (s *OrderedSet[T]) Contains(value T) bool {
	_, ok := s.index[value]
	return ok
}

// Len returns the number of members.
func (s *OrderedSet[T]) Len() int {
	return len(s.values)
}

// Values returns a copy of the members in insertion order.
func (s *OrderedSet[T]) Values() []T {
	out := make([]T, len(s.values))
	copy(out, s.values)
	return out
}
