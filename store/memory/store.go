// Package memory is the in-process storage backend.
package memory

import (
	"sync"

	"github.com/govm-net/guestenv/core"
	"github.com/govm-net/guestenv/store"
)

func init() {
	if err := store.Register(store.MemoryType, func(map[string]any) (store.Store, error) {
		return New(), nil
	}); err != nil {
		panic(err)
	}
}

// Store keeps contract storage in maps.
type Store struct {
	mu     sync.RWMutex
	data   map[core.AccountID]map[string][]byte
	closed bool
}

// New returns an empty store.
func New() *Store {
	return &Store{data: make(map[core.AccountID]map[string][]byte)}
}

func (s *Store) Get(contract core.AccountID, key []byte) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, false, store.ErrClosed
	}
	v, ok := s.data[contract][string(key)]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (s *Store) Set(contract core.AccountID, key, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	m, ok := s.data[contract]
	if !ok {
		m = make(map[string][]byte)
		s.data[contract] = m
	}
	m[string(key)] = append([]byte{}, value...)
	return nil
}

func (s *Store) Delete(contract core.AccountID, key []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return store.ErrClosed
	}
	delete(s.data[contract], string(key))
	return nil
}

// Len returns the number of keys stored for contract.
func (s *Store) Len(contract core.AccountID) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data[contract])
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
