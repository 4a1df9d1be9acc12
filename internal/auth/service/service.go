package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"compass/internal/audit"
	"compass/internal/session"
	"compass/internal/user"
	"compass/pkg/attrs"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	emailaddr "compass/pkg/email"
	"compass/pkg/platform/secrets"
	"compass/pkg/platform/sentinel"
	"compass/pkg/requestcontext"
)

type UserStore interface {
	Create(ctx context.Context, u *user.User) error
	FindByEmail(ctx context.Context, email string) (*user.User, error)
}

type SessionCreator interface {
	Create(ctx context.Context, userID id.UserID) (*session.Session, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, sessionID id.SessionID, expiresIn time.Duration) (string, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) error
}

// Service exchanges credentials for a session-bound access token.
type Service struct {
	users     UserStore
	sessions  SessionCreator
	tokens    TokenIssuer
	accessTTL time.Duration
	logger    *slog.Logger
	audit     AuditRecorder
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		s.audit = recorder
	}
}

// New constructs a Service. accessTTL bounds issued access tokens; sessions
// carry their own, longer lifetime.
func New(users UserStore, sessions SessionCreator, tokens TokenIssuer, accessTTL time.Duration, opts ...Option) *Service {
	s := &Service{users: users, sessions: sessions, tokens: tokens, accessTTL: accessTTL}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is what a successful credential exchange hands back.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Session   *session.Session
	User      *user.User
}

// Login verifies credentials and opens a session. All rejection paths
// return the same unauthorized error so responses never reveal whether an
// email is registered or an account suspended.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if email == "" || password == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "email and password are required")
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.rejectLogin(ctx, "unknown email")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up user")
	}

	if err := secrets.VerifyPassword(password, u.PasswordHash); err != nil {
		return nil, s.rejectLogin(ctx, "password mismatch")
	}

	if !u.IsActive() {
		return nil, s.rejectLogin(ctx, "account suspended")
	}

	sess, err := s.sessions.Create(ctx, u.ID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create session")
	}

	token, err := s.tokens.GenerateAccessToken(u.ID, sess.ID, s.accessTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}

	s.logAudit(ctx, &u.ID, audit.ActionLogin,
		"session_id", sess.ID.String(),
		"device", sess.DeviceName,
	)

	return &LoginResult{
		Token:     token,
		ExpiresIn: s.accessTTL,
		Session:   sess,
		User:      u,
	}, nil
}

// CreateAccount provisions an active user with a hashed credential. No HTTP
// surface; used by operational seeding and tests that need real logins.
// When no display name is given, one is derived from the email address.
func (s *Service) CreateAccount(ctx context.Context, email, displayName, password string) (*user.User, error) {
	if displayName == "" {
		displayName = emailaddr.DeriveDisplayName(email)
	}
	hash, err := secrets.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u, err := user.New(id.NewUserID(), email, displayName, hash, requestcontext.Now(ctx))
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, err.Error())
		}
		return nil, err
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "email already registered")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	return u, nil
}

func (s *Service) rejectLogin(ctx context.Context, reason string) error {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "login rejected", "reason", reason)
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
}

// logAudit emits a structured log line and a ledger entry from one
// key-value list, so the two never drift apart.
func (s *Service) logAudit(ctx context.Context, actor *id.UserID, action audit.Action, kv ...any) {
	if s.logger != nil {
		args := append(kv, "event", action, "log_type", "audit")
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, actor, action, audit.OriginSelfService, attrs.Map(kv))
}
