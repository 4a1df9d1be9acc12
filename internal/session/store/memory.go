package store

import (
	"context"
	"sync"
	"time"

	"compass/internal/session"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/sentinel"
)

// MemoryStore keeps sessions in memory for tests.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*session.Session
}

// NewMemory constructs an empty in-memory session store.
func NewMemory() *MemoryStore {
	return &MemoryStore{sessions: make(map[id.SessionID]*session.Session)}
}

func (s *MemoryStore) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !sess.ExpiresAt.After(sess.CreatedAt) {
		return dErrors.New(dErrors.CodeInvalidInput, "session already expired")
	}
	stored := *sess
	s.sessions[sess.ID] = &stored
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, sessionID id.SessionID) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (s *MemoryStore) Active(_ context.Context, sessionID id.SessionID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.sessions[sessionID]
	return ok, nil
}

func (s *MemoryStore) RevokeAllForUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for sessID, sess := range s.sessions {
		if sess.UserID == userID {
			delete(s.sessions, sessID)
			removed++
		}
	}
	return removed, nil
}

// ExpireNow drops sessions whose expiry has passed. Redis does this with
// key TTLs; tests call it to simulate the clock moving.
func (s *MemoryStore) ExpireNow(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for sessID, sess := range s.sessions {
		if !sess.ExpiresAt.After(now) {
			delete(s.sessions, sessID)
		}
	}
}
