package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"compass/internal/audit"
	"compass/internal/registration"
	"compass/internal/retention"
	"compass/internal/retention/metrics"
	"compass/internal/user"
	id "compass/pkg/domain"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks

// tracer instruments the deletion lifecycle. Span export is wired (or not)
// by the binary; without an SDK the global provider is a no-op.
var tracer = otel.Tracer("compass/internal/retention")

type UserStore interface {
	FindByID(ctx context.Context, userID id.UserID) (*user.User, error)
	Suspend(ctx context.Context, userID id.UserID, now time.Time) error
	Delete(ctx context.Context, userID id.UserID) error
}

type AttendanceStore interface {
	ListAttendance(ctx context.Context, userID id.UserID) ([]*registration.AttendanceRecord, error)
	RemoveAllForUser(ctx context.Context, userID id.UserID) (int, error)
	DetachCreator(ctx context.Context, userID id.UserID) error
}

type PendingStore interface {
	Create(ctx context.Context, p *retention.PendingDeletion) error
	FindByUser(ctx context.Context, userID id.UserID) (*retention.PendingDeletion, error)
	ListDue(ctx context.Context, now time.Time) ([]*retention.PendingDeletion, error)
	List(ctx context.Context, limit int) ([]*retention.PendingDeletion, error)
	Delete(ctx context.Context, userID id.UserID) error
}

type ArchiveStore interface {
	Create(ctx context.Context, rec *retention.ArchiveRecord) error
}

type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID id.UserID) (int, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) error
}

// TxRunner runs fn atomically. Stores called inside fn join the same
// transaction through the context it receives.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TxRunnerFunc adapts a function to the TxRunner interface.
type TxRunnerFunc func(ctx context.Context, fn func(ctx context.Context) error) error

func (f TxRunnerFunc) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// Stores bundles the persistence surfaces the deletion lifecycle touches.
type Stores struct {
	Users      UserStore
	Attendance AttendanceStore
	Pending    PendingStore
	Archive    ArchiveStore
}

// Service owns the account deletion lifecycle: eligibility evaluation,
// scheduling behind retention windows, atomic erasure, and the periodic
// sweep of due deletions. Status transitions and final removal happen only
// here; the rest of the application reads, never writes.
type Service struct {
	stores           Stores
	sessions         SessionRevoker
	txRunner         TxRunner
	window           time.Duration
	sweepConcurrency int
	logger           *slog.Logger
	metrics          *metrics.Metrics
	audit            AuditRecorder
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Service) {
		s.audit = recorder
	}
}

// WithSweepConcurrency bounds how many due deletions erase in parallel.
func WithSweepConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.sweepConcurrency = n
		}
	}
}

// New constructs a Service. window is the retention period counted from a
// user's last attended event; sessions are revoked on every deletion
// request regardless of outcome.
func New(stores Stores, sessions SessionRevoker, txRunner TxRunner, window time.Duration, opts ...Option) *Service {
	s := &Service{
		stores:           stores,
		sessions:         sessions,
		txRunner:         txRunner,
		window:           window,
		sweepConcurrency: defaultSweepConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

const defaultSweepConcurrency = 4

// terminateSessions force-logs-out the user. Failures are logged, never
// propagated: the lifecycle change has already won, and a session that
// lingers until its TTL is a smaller problem than a deletion that appears
// to have failed.
func (s *Service) terminateSessions(ctx context.Context, userID id.UserID) {
	revoked, err := s.sessions.RevokeAllForUser(ctx, userID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "session revocation failed", "user_id", userID, "error", err)
		}
		return
	}
	if revoked > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "sessions revoked", "user_id", userID, "count", revoked)
	}
}

func (s *Service) logAudit(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) {
	if s.logger != nil {
		args := []any{"event", action, "origin", origin, "log_type", "audit"}
		if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
			args = append(args, "trace_id", sc.TraceID().String())
		}
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, actor, action, origin, details)
}
