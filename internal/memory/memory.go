// Package memory implements an in-process slot store. It backs tests and
// the "memory" backend, where nothing outlives the process.
package memory

import (
	"bytes"
	"sync"

	"github.com/mesh-intelligence/logbook/pkg/types"
)

// Store is a map-backed types.SlotStore. It is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	slots  map[string][]byte
	closed bool
}

// New returns an empty Store.
func New() *Store {
	return &Store{slots: make(map[string][]byte)}
}

// Get returns a copy of the value stored under key.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	v, ok := s.slots[key]
	if !ok {
		return nil, types.ErrSlotNotFound
	}
	return bytes.Clone(v), nil
}

// Set replaces the value stored under key.
func (s *Store) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	s.slots[key] = bytes.Clone(value)
	return nil
}

// Delete removes key. Absent keys are ignored.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	delete(s.slots, key)
	return nil
}

// Close marks the store closed. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
