package pending

import (
	"context"
	"sort"
	"sync"
	"time"

	"compass/internal/retention"
	id "compass/pkg/domain"
	"compass/pkg/platform/sentinel"
)

// MemoryStore is an in-memory pending-deletion store for tests.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[id.UserID]retention.PendingDeletion
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{rows: make(map[id.UserID]retention.PendingDeletion)}
}

func (s *MemoryStore) Create(_ context.Context, p *retention.PendingDeletion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.rows[p.UserID]; exists {
		return sentinel.ErrConflict
	}
	s.rows[p.UserID] = *p
	return nil
}

func (s *MemoryStore) FindByUser(_ context.Context, userID id.UserID) (*retention.PendingDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.rows[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copy := p
	return &copy, nil
}

func (s *MemoryStore) ListDue(_ context.Context, now time.Time) ([]*retention.PendingDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*retention.PendingDeletion
	for _, p := range s.rows {
		if p.Due(now) {
			copy := p
			out = append(out, &copy)
		}
	}
	sortByDeletionDate(out)
	return out, nil
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]*retention.PendingDeletion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = defaultListLimit
	}
	out := make([]*retention.PendingDeletion, 0, len(s.rows))
	for _, p := range s.rows {
		copy := p
		out = append(out, &copy)
	}
	sortByDeletionDate(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rows, userID)
	return nil
}

func sortByDeletionDate(rows []*retention.PendingDeletion) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].DeletionDate.Before(rows[j].DeletionDate)
	})
}
