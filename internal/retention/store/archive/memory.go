package archive

import (
	"context"
	"sort"
	"sync"

	"compass/internal/retention"
)

// MemoryStore is an in-memory archive store for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows []retention.ArchiveRecord
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Create(_ context.Context, rec *retention.ArchiveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, *rec)
	return nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*retention.ArchiveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]*retention.ArchiveRecord, 0, len(s.rows))
	for i := range s.rows {
		copy := s.rows[i]
		out = append(out, &copy)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].ErasedAt.After(out[j].ErasedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
