package session

import (
	"slices"
	"sync"
)

// ProgressStore is the key/value persistence the manager saves deck progress into.
type ProgressStore interface {
	Get(key string) ([]byte, bool, error)
	Set(key string, value []byte) error
}

// MemoryStore is a ProgressStore kept in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return slices.Clone(v), ok, nil
}

func (s *MemoryStore) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = slices.Clone(value)
	return nil
}
