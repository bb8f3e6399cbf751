package model

import (
	"sync"
)

// ThreadSafeMap is a typed wrapper over sync.Map, used for tables written by
// concurrent fetch-completion handlers.
type ThreadSafeMap[K comparable, V any] struct {
	data sync.Map
}

func NewThreadSafeMap[K comparable, V any]() *ThreadSafeMap[K, V] {
	return &ThreadSafeMap[K, V]{}
}

// Set stores a key/value pair.
func (tsm *ThreadSafeMap[K, V]) Set(key K, value V) {
	tsm.data.Store(key, value)
}

// Get returns the value for key and whether it was present.
func (tsm *ThreadSafeMap[K, V]) Get(key K) (V, bool) {
	value, ok := tsm.data.Load(key)
	if !ok {
		var zero V
		return zero, false
	}
	return value.(V), true
}

// GetOrSet returns the existing value for key, storing and returning value
// when the key was absent.
func (tsm *ThreadSafeMap[K, V]) GetOrSet(key K, value V) (V, bool) {
	actual, loaded := tsm.data.LoadOrStore(key, value)
	return actual.(V), loaded
}

// Delete removes a key.
func (tsm *ThreadSafeMap[K, V]) Delete(key K) {
	tsm.data.Delete(key)
}

// Len returns the number of stored entries.
func (tsm *ThreadSafeMap[K, V]) Len() int {
	length := 0
	tsm.data.Range(func(_, _ any) bool {
		length++
		return true
	})
	return length
}

// Exists reports whether key is present.
func (tsm *ThreadSafeMap[K, V]) Exists(key K) bool {
	_, ok := tsm.data.Load(key)
	return ok
}

// Range calls fn for each entry until fn returns false.
func (tsm *ThreadSafeMap[K, V]) Range(fn func(key K, value V) bool) {
	tsm.data.Range(func(key, value any) bool {
		return fn(key.(K), value.(V))
	})
}

// Keys returns the stored keys in map iteration order.
func (tsm *ThreadSafeMap[K, V]) Keys() []K {
	keys := make([]K, 0)
	tsm.data.Range(func(key, _ any) bool {
		keys = append(keys, key.(K))
		return true
	})
	return keys
}
