// Package registry provides a concurrent-safe generic map used as a keyed
// lock table: registering a key claims it, unregistering releases it.
package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrKeyAlreadyRegistered is returned when registering a key that is present.
var ErrKeyAlreadyRegistered = errors.New("key is already registered")

// ErrStopIteration stops Range without an error.
var ErrStopIteration = errors.New("stop iteration")

// Registry is a concurrent-safe registry.
type Registry[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]V
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{items: make(map[K]V)}
}

// Register stores val under key unless key is already present.
func (r *Registry[K, V]) Register(key K, val V) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[key]; exists {
		return fmt.Errorf("%w: %v", ErrKeyAlreadyRegistered, key)
	}
	r.items[key] = val
	return nil
}

// Unregister removes key if present.
func (r *Registry[K, V]) Unregister(key K) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, key)
}

// UnregisterIf removes key only while it still maps to a value for which
// match returns true. It reports whether the key was removed.
func (r *Registry[K, V]) UnregisterIf(key K, match func(V) bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	val, ok := r.items[key]
	if !ok || !match(val) {
		return false
	}
	delete(r.items, key)
	return true
}

// Get returns the value for key.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	val, ok := r.items[key]
	return val, ok
}

// Exists reports whether key is registered.
func (r *Registry[K, V]) Exists(key K) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.items[key]
	return ok
}

// Length returns the number of items.
func (r *Registry[K, V]) Length() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// RangeFunc is called for each item. Return ErrStopIteration to stop early.
type RangeFunc[K comparable, V any] func(key K, val V) error

// Range calls f for a snapshot of the items, so f may call back into the registry.
func (r *Registry[K, V]) Range(f RangeFunc[K, V]) error {
	r.mu.Lock()
	snapshot := make(map[K]V, len(r.items))
	for k, v := range r.items {
		snapshot[k] = v
	}
	r.mu.Unlock()

	for k, v := range snapshot {
		switch err := f(k, v); {
		case err == nil:
		case errors.Is(err, ErrStopIteration):
			return nil
		default:
			return err
		}
	}
	return nil
}

// Keys returns the registered keys in sorted order when K is a string.
func Keys[V any](r *Registry[string, V]) []string {
	r.mu.Lock()
	keys := make([]string, 0, len(r.items))
	for k := range r.items {
		keys = append(keys, k)
	}
	r.mu.Unlock()
	sort.Strings(keys)
	return keys
}
