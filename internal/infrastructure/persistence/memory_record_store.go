package persistence

import (
	"context"
	"sync"

	"github.com/erp/portal/internal/domain/shared"
)

// MemoryRecordStore is a process-local RecordStore.
// Each Write is atomic for one collection only, so multi-collection units of
// work over it use the compensation path.
type MemoryRecordStore struct {
	mu   sync.RWMutex
	data map[shared.Collection]shared.Snapshot
}

// NewMemoryRecordStore creates an empty store
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{data: make(map[shared.Collection]shared.Snapshot)}
}

// Read returns a copy of the snapshot of c
func (s *MemoryRecordStore) Read(_ context.Context, c shared.Collection) (shared.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.data[c]
	if !ok {
		return shared.EmptySnapshot(c), nil
	}
	return snap.Clone(), nil
}

// Write stores a copy of snap as the state of c
func (s *MemoryRecordStore) Write(_ context.Context, c shared.Collection, snap shared.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[c] = snap.Normalize(c).Clone()
	return nil
}

var _ shared.RecordStore = (*MemoryRecordStore)(nil)
