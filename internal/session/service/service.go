package service

import (
	"context"
	"log/slog"
	"time"

	"compass/internal/session"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

type Store interface {
	Create(ctx context.Context, sess *session.Session) error
	FindByID(ctx context.Context, sessionID id.SessionID) (*session.Session, error)
	Active(ctx context.Context, sessionID id.SessionID) (bool, error)
	RevokeAllForUser(ctx context.Context, userID id.UserID) (int, error)
}

// Service manages login sessions. The deletion flow leans on RevokeAllForUser:
// terminating sessions is what actually locks a suspended account out.
type Service struct {
	store  Store
	ttl    time.Duration
	logger *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// New constructs a Service. ttl bounds every session's lifetime.
func New(store Store, ttl time.Duration, opts ...Option) *Service {
	s := &Service{store: store, ttl: ttl}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a session for the user. The device name comes from the
// User-Agent carried in ctx by the client-metadata middleware.
func (s *Service) Create(ctx context.Context, userID id.UserID) (*session.Session, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	now := requestcontext.Now(ctx)
	sess := &session.Session{
		ID:         id.NewSessionID(),
		UserID:     userID,
		DeviceName: session.ParseUserAgent(requestcontext.UserAgent(ctx)),
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.ttl),
	}
	if err := s.store.Create(ctx, sess); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to create session")
	}
	return sess, nil
}

// Active reports whether the session is still honored. Satisfies the
// middleware's session checker.
func (s *Service) Active(ctx context.Context, sessionID id.SessionID) (bool, error) {
	active, err := s.store.Active(ctx, sessionID)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to check session")
	}
	return active, nil
}

// RevokeAllForUser terminates every session the user holds, across devices.
func (s *Service) RevokeAllForUser(ctx context.Context, userID id.UserID) (int, error) {
	revoked, err := s.store.RevokeAllForUser(ctx, userID)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to revoke sessions")
	}
	if s.logger != nil && revoked > 0 {
		s.logger.InfoContext(ctx, "sessions revoked", "user_id", userID, "count", revoked)
	}
	return revoked, nil
}
