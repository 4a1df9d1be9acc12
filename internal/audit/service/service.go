package service

import (
	"context"
	"log/slog"

	"compass/internal/audit"
	"compass/internal/audit/metrics"
	"compass/internal/audit/store"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

type Store interface {
	Append(ctx context.Context, entry *audit.Entry) error
	List(ctx context.Context, filter store.Filter) ([]*audit.Entry, error)
}

// Recorder appends entries to the audit ledger. Callers treat append
// failures as non-fatal: the lifecycle change wins, the gap is logged
// and counted instead.
type Recorder struct {
	store   Store
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(r *Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// New constructs a Recorder.
func New(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record appends one entry stamped with the request time. The entry commits
// atomically with any transaction carried by ctx.
func (r *Recorder) Record(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) error {
	entry := &audit.Entry{
		ID:        id.NewAuditID(),
		ActorID:   actor,
		Action:    action,
		Details:   details,
		Origin:    origin,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := r.store.Append(ctx, entry); err != nil {
		r.noteFailure(ctx, entry, err)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record audit entry")
	}
	r.noteRecorded()
	return nil
}

// List returns ledger entries for the admin surface, newest first.
func (r *Recorder) List(ctx context.Context, filter store.Filter) ([]*audit.Entry, error) {
	entries, err := r.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}

func (r *Recorder) noteRecorded() {
	if r.metrics != nil {
		r.metrics.IncrementRecorded()
	}
}

func (r *Recorder) noteFailure(ctx context.Context, entry *audit.Entry, err error) {
	if r.logger != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"action", entry.Action,
			"origin", entry.Origin,
			"error", err)
	}
	if r.metrics != nil {
		r.metrics.IncrementRecordFailure()
	}
}
