package collections

import "container/list"

// LinkedMap is a map whose iteration order follows access order: every Get,
// Put or PutIfAbsent of a key moves that key to the end of the iteration
// order.  The zero value is not usable; see NewLinkedMap.
type LinkedMap[K comparable, V any] struct {
	order *list.List
	index map[K]*list.Element
}

type linkedEntry[K comparable, V any] struct {
	key   K
	value V
}

// NewLinkedMap creates a new empty LinkedMap.
func NewLinkedMap[K comparable, V any]() *LinkedMap[K, V] {
	return &LinkedMap[K, V]{
		order: list.New(),
		index: make(map[K]*list.Element),
	}
}

// Len returns the number of entries.
func (m *LinkedMap[K, V]) Len() int {
	return len(m.index)
}

// Get returns the value for the given key and marks it as most recently
// accessed.
func (m *LinkedMap[K, V]) Get(key K) (V, bool) {
	elem, ok := m.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	m.order.MoveToBack(elem)
	return elem.Value.(*linkedEntry[K, V]).value, true
}

// Put stores the value, replacing any previous value for the key, and marks
// the key as most recently accessed.
func (m *LinkedMap[K, V]) Put(key K, value V) {
	if elem, ok := m.index[key]; ok {
		elem.Value.(*linkedEntry[K, V]).value = value
		m.order.MoveToBack(elem)
		return
	}
	m.index[key] = m.order.PushBack(&linkedEntry[K, V]{key: key, value: value})
}

// PutIfAbsent stores the value only if the key is not present.  In both cases
// the key is marked as most recently accessed.  The returned value is the one
// held by the map after the call; the boolean reports whether it was already
// present.
func (m *LinkedMap[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	if elem, ok := m.index[key]; ok {
		m.order.MoveToBack(elem)
		return elem.Value.(*linkedEntry[K, V]).value, true
	}
	m.index[key] = m.order.PushBack(&linkedEntry[K, V]{key: key, value: value})
	return value, false
}

// Keys returns the keys in iteration order.
func (m *LinkedMap[K, V]) Keys() []K {
	keys := make([]K, 0, m.order.Len())
	for e := m.order.Front(); e != nil; e = e.Next() {
		keys = append(keys, e.Value.(*linkedEntry[K, V]).key)
	}
	return keys
}

// Values returns the values in iteration order.
func (m *LinkedMap[K, V]) Values() []V {
	values := make([]V, 0, m.order.Len())
	for e := m.order.Front(); e != nil; e = e.Next() {
		values = append(values, e.Value.(*linkedEntry[K, V]).value)
	}
	return values
}
