package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"compass/internal/user"
	id "compass/pkg/domain"
	"compass/pkg/platform/sentinel"
)

// MemoryStore keeps users in memory for tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*user.User
}

// NewMemory constructs an empty in-memory user store.
func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*user.User)}
}

func (s *MemoryStore) Create(_ context.Context, u *user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == u.Email {
			return sentinel.ErrConflict
		}
	}
	stored := *u
	s.users[u.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, userID id.UserID) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *u
	return &copied, nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Suspend(_ context.Context, userID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	u.Status = user.StatusSuspended
	u.UpdatedAt = now
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}
