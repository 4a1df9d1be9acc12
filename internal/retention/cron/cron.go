// Package cron runs the deletion sweep on a fixed schedule. Each tick
// processes whatever is due at that moment; there is no internal retry or
// self-rescheduling, the next tick picks up anything still outstanding.
package cron

import (
	"context"
	"log/slog"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"compass/internal/audit"
	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

// Sweeper runs one pass over the due pending deletions.
type Sweeper interface {
	RunDue(ctx context.Context) (*retention.BatchResult, error)
}

// AuditRecorder writes the per-run batch summary entry.
type AuditRecorder interface {
	Record(ctx context.Context, actor *id.UserID, action audit.Action, origin string, details map[string]any) error
}

// Notifier alerts operators when an entire sweep run fails. Per-item
// failures are not its business; those stay in the audit ledger.
type Notifier interface {
	SweepFailure(ctx context.Context, cause error) error
}

// Scheduler owns the sweep timer. It is safe to Start and Stop repeatedly.
type Scheduler struct {
	sweeper  Sweeper
	schedule string

	cron       *cronlib.Cron
	mu         sync.Mutex
	baseCtx    context.Context
	registered bool
	running    bool

	logger   *slog.Logger
	audit    AuditRecorder
	notifier Notifier
}

// Option configures optional Scheduler dependencies.
type Option func(*Scheduler)

// WithLogger sets the logger for sweep diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithAuditRecorder enables the batch summary entry after each run.
func WithAuditRecorder(recorder AuditRecorder) Option {
	return func(s *Scheduler) {
		s.audit = recorder
	}
}

// WithNotifier enables operator alerts on total sweep failure.
func WithNotifier(notifier Notifier) Option {
	return func(s *Scheduler) {
		s.notifier = notifier
	}
}

// New validates the cron expression up front so a bad deployment fails at
// startup rather than silently never sweeping. Standard five-field
// expressions and descriptors like "@daily" are accepted.
func New(sweeper Sweeper, schedule string, opts ...Option) (*Scheduler, error) {
	if _, err := cronlib.ParseStandard(schedule); err != nil {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "invalid sweep schedule %q: %v", schedule, err)
	}

	s := &Scheduler{
		sweeper:  sweeper,
		schedule: schedule,
		cron:     cronlib.New(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Start begins ticking. The context bounds the scheduler's lifetime:
// cancelling it stops the timer and waits for an in-flight sweep to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}
	if !s.registered {
		if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
			return dErrors.Newf(dErrors.CodeInternal, "register sweep job: %v", err)
		}
		s.registered = true
	}
	s.baseCtx = ctx
	s.cron.Start()
	s.running = true
	s.logger.InfoContext(ctx, "deletion sweep scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the timer and blocks until an in-flight sweep finishes.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.logger.Info("deletion sweep scheduler stopped")
}

// IsRunning reports whether the timer is active.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun reports when the next sweep fires, or nil before Start.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.cron.Entries()
	if len(entries) == 0 || entries[0].Next.IsZero() {
		return nil
	}
	next := entries[0].Next
	return &next
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.baseCtx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	s.RunOnce(ctx)
}

// RunOnce executes a single sweep immediately, outside the schedule.
// Startup calls it to clear any backlog without waiting for the next tick.
// Failures are logged and notified, never returned: the sweep is periodic
// and the next run retries naturally.
func (s *Scheduler) RunOnce(ctx context.Context) {
	// Pin a single "now" for the whole run so due selection and erasure
	// timestamps agree.
	ctx = requestcontext.WithTime(ctx, time.Now())

	result, err := s.sweeper.RunDue(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "scheduled sweep failed", "error", err)
		s.notifyFailure(ctx, err)
		return
	}

	s.logger.InfoContext(ctx, "scheduled sweep finished",
		"deleted", result.Processed,
		"failed", result.Failed,
	)
	s.recordSummary(ctx, result)
}

func (s *Scheduler) recordSummary(ctx context.Context, result *retention.BatchResult) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, nil, audit.ActionScheduledDeleteBatch, audit.OriginScheduler, map[string]any{
		"deleted": result.Processed,
		"failed":  result.Failed,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to record sweep summary", "error", err)
	}
}

func (s *Scheduler) notifyFailure(ctx context.Context, cause error) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.SweepFailure(ctx, cause); err != nil {
		s.logger.ErrorContext(ctx, "failed to notify sweep failure", "error", err)
	}
}
