package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"compass/internal/audit"
	id "compass/pkg/domain"
)

// MemoryStore keeps audit entries in memory for tests and local development.
type MemoryStore struct {
	mu        sync.RWMutex
	entries   []*audit.Entry
	published map[id.AuditID]time.Time
}

// NewMemory constructs an empty in-memory audit store.
func NewMemory() *MemoryStore {
	return &MemoryStore{published: make(map[id.AuditID]time.Time)}
}

func (s *MemoryStore) Append(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *entry
	s.entries = append(s.entries, &stored)
	return nil
}

func (s *MemoryStore) List(_ context.Context, filter Filter) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.Entry
	for _, entry := range s.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.ActorID != nil {
			if entry.ActorID == nil || *entry.ActorID != *filter.ActorID {
				continue
			}
		}
		copied := *entry
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListUnpublished(_ context.Context, limit int) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = defaultListLimit
	}
	var out []*audit.Entry
	for _, entry := range s.entries {
		if _, ok := s.published[entry.ID]; ok {
			continue
		}
		copied := *entry
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) MarkPublished(_ context.Context, ids []id.AuditID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, entryID := range ids {
		s.published[entryID] = at
	}
	return nil
}

// Clear drops all entries. Test helper.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.published = make(map[id.AuditID]time.Time)
}
