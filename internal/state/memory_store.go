package state

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store for tests and dry runs. It round-trips
// records through JSON so tests exercise the same serialization the durable
// backends use.
type MemoryStore struct {
	mu  sync.RWMutex
	raw []byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the stored record, ErrNotFound when empty.
func (s *MemoryStore) Load(_ context.Context) (*Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.raw == nil {
		return nil, ErrNotFound
	}
	var p Progress
	if err := json.Unmarshal(s.raw, &p); err != nil {
		return nil, fmt.Errorf("decode progress: %w", err)
	}
	return &p, nil
}

// Save validates and stores an encoded copy.
func (s *MemoryStore) Save(_ context.Context, p *Progress) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("refusing to persist invalid progress: %w", err)
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
	return nil
}

// Clear drops the record.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.raw = nil
	s.mu.Unlock()
	return nil
}
