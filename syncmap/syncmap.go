package syncmap

import "sync"

// Map is a map synchronized with a mutex. The zero value is not usable;
// create one with [New].
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// New returns a new syncmap.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value for a key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok
}

// LoadOrStore returns the existing value for a key if present. Otherwise, it
// stores the result of calling mk and returns that. loaded reports whether the
// value was already present. mk is called with the map locked.
func (m *Map[K, V]) LoadOrStore(key K, mk func() V) (actual V, loaded bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.m[key]; ok {
		return v, true
	}
	v := mk()
	m.m[key] = v
	return v, false
}

// Delete deletes a key.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
}

// DeleteFunc deletes every element for which f returns true and returns the
// number deleted. f is called with the map locked.
func (m *Map[K, V]) DeleteFunc(f func(K, V) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for k, v := range m.m {
		if f(k, v) {
			delete(m.m, k)
			n++
		}
	}
	return n
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}
