package maskcache

import (
	"context"
	"sync"

	"github.com/bob-anderson-ok/FresnelArrayDiffraction/fresnel"
)

// MemoryStore keeps masks for the life of the process. Stored masks are shared, not copied;
// callers must treat them as read-only.
type MemoryStore struct {
	mu    sync.RWMutex
	masks map[Key]*fresnel.Mask
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{masks: make(map[Key]*fresnel.Mask)}
}

func (s *MemoryStore) Get(_ context.Context, key Key) (*fresnel.Mask, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.masks[key]
	return m, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, key Key, m *fresnel.Mask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.masks[key] = m
	return nil
}

// Len returns the number of stored masks.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.masks)
}
