// Package storage defines the key-value slot abstraction used for durable
// session state (progress snapshots, experiment assignments).
package storage

import "sync"

// KVStore is a flat string key-value store. Implementations must be safe for
// concurrent use.
type KVStore interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Delete(key string) error
}

// MemoryStore is an in-memory KVStore. It is the library default and the
// backing store used in tests.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (s *MemoryStore) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *MemoryStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}

// Len reports the number of stored keys.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

// Prefixed returns a view of inner where every key is prefixed. Used to give
// each client its own namespace inside a shared store.
func Prefixed(inner KVStore, prefix string) KVStore {
	return &prefixedStore{inner: inner, prefix: prefix}
}

type prefixedStore struct {
	inner  KVStore
	prefix string
}

func (s *prefixedStore) Get(key string) (string, bool, error) {
	return s.inner.Get(s.prefix + key)
}

func (s *prefixedStore) Set(key, value string) error {
	return s.inner.Set(s.prefix+key, value)
}

func (s *prefixedStore) Delete(key string) error {
	return s.inner.Delete(s.prefix + key)
}
