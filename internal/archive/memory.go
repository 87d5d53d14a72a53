package archive

import (
	"context"
	"errors"
	"sync"
)

// MemoryStore keeps snapshots in memory for tests and dry runs.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Put stores a copy of the snapshot.
func (s *MemoryStore) Put(_ context.Context, key string, html []byte) (string, error) {
	if key == "" {
		return "", errors.New("snapshot key is required")
	}
	s.mu.Lock()
	s.data[key] = append([]byte(nil), html...)
	s.mu.Unlock()
	return "memory://" + key, nil
}

// Get returns a stored snapshot, for test assertions.
func (s *MemoryStore) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[key]
	return raw, ok
}

// Len reports how many snapshots are held.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
