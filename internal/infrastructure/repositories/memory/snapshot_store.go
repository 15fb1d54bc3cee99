package memory

import (
	"context"
	"sync"

	"rosterbot/internal/core/domain"
)

// SnapshotStore keeps snapshots for the life of the process. Used by tests
// and by the memory storage driver.
type SnapshotStore struct {
	snapshots map[domain.SnapshotKey][]byte
	mu        sync.RWMutex
}

func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		snapshots: make(map[domain.SnapshotKey][]byte),
	}
}

func (s *SnapshotStore) Load(ctx context.Context, key domain.SnapshotKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.snapshots[key]
	if !exists {
		return nil, domain.ErrSnapshotNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *SnapshotStore) Save(ctx context.Context, key domain.SnapshotKey, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[key] = append([]byte(nil), data...)
	return nil
}
