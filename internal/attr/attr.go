// Package attr provides typed side-tables that attach opaque analysis
// records to class, field and method entities. Records are created lazily
// and live exactly as long as the entity they are keyed on; discarding the
// store discards all records.
package attr

import "github.com/puzpuzpuz/xsync/v4"

// Store maps entity identities to analysis records. It is safe for
// concurrent use; distinct keys never contend.
type Store[K comparable, V any] struct {
	m *xsync.Map[K, V]
}

// NewStore creates an empty store.
func NewStore[K comparable, V any]() *Store[K, V] {
	return &Store[K, V]{m: xsync.NewMap[K, V]()}
}

// Load returns the record for the given entity, if one exists.
func (s *Store[K, V]) Load(key K) (V, bool) {
	return s.m.Load(key)
}

// Store attaches the record to the given entity, replacing any previous one.
func (s *Store[K, V]) Store(key K, value V) {
	s.m.Store(key, value)
}

// LoadOrStore returns the existing record for the entity, or attaches and
// returns the given one. The loaded result reports which happened.
func (s *Store[K, V]) LoadOrStore(key K, value V) (V, bool) {
	return s.m.LoadOrStore(key, value)
}

// Range calls fn for every attached record until fn returns false.
func (s *Store[K, V]) Range(fn func(key K, value V) bool) {
	s.m.Range(fn)
}

// Size returns the number of attached records.
func (s *Store[K, V]) Size() int {
	return s.m.Size()
}
