package cron

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass/internal/audit"
	auditservice "compass/internal/audit/service"
	auditstore "compass/internal/audit/store"
	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

type stubSweeper struct {
	mu     sync.Mutex
	result *retention.BatchResult
	err    error
	calls  int
	lastAt time.Time
}

func (s *stubSweeper) RunDue(ctx context.Context) (*retention.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastAt = requestcontext.Now(ctx)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubSweeper) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type stubNotifier struct {
	mu     sync.Mutex
	causes []error
}

func (n *stubNotifier) SweepFailure(_ context.Context, cause error) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.causes = append(n.causes, cause)
	return nil
}

type failingRecorder struct{ err error }

func (f *failingRecorder) Record(context.Context, *id.UserID, audit.Action, string, map[string]any) error {
	return f.err
}

func TestNew_ValidatesSchedule(t *testing.T) {
	sweeper := &stubSweeper{result: &retention.BatchResult{}}

	for _, schedule := range []string{"0 3 * * *", "*/15 * * * *", "@daily", "@every 1h"} {
		_, err := New(sweeper, schedule)
		assert.NoError(t, err, schedule)
	}

	for _, schedule := range []string{"", "not a schedule", "99 99 * * *"} {
		_, err := New(sweeper, schedule)
		require.Error(t, err, schedule)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput), schedule)
	}
}

func TestScheduler_StartStop(t *testing.T) {
	sweeper := &stubSweeper{result: &retention.BatchResult{}}
	s, err := New(sweeper, "0 3 * * *")
	require.NoError(t, err)

	assert.Nil(t, s.NextRun(), "no next run before start")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for range 2 {
		require.NoError(t, s.Start(ctx))
		assert.True(t, s.IsRunning())
		assert.Eventually(t, func() bool {
			next := s.NextRun()
			return next != nil && next.After(time.Now())
		}, time.Second, 10*time.Millisecond)

		s.Stop()
		assert.False(t, s.IsRunning())
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	sweeper := &stubSweeper{result: &retention.BatchResult{}}
	s, err := New(sweeper, "0 3 * * *")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	cancel()
	assert.Eventually(t, func() bool { return !s.IsRunning() }, time.Second, 10*time.Millisecond)
}

func TestScheduler_TicksOnSchedule(t *testing.T) {
	sweeper := &stubSweeper{result: &retention.BatchResult{}}
	s, err := New(sweeper, "@every 10ms")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	assert.Eventually(t, func() bool { return sweeper.callCount() >= 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestRunOnce_RecordsBatchSummary(t *testing.T) {
	ledger := auditstore.NewMemory()
	sweeper := &stubSweeper{result: &retention.BatchResult{Processed: 2, Failed: 1}}
	s, err := New(sweeper, "0 3 * * *", WithAuditRecorder(auditservice.New(ledger)))
	require.NoError(t, err)

	s.RunOnce(context.Background())

	entries, err := ledger.List(context.Background(), auditstore.Filter{Action: audit.ActionScheduledDeleteBatch})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Nil(t, entries[0].ActorID)
	assert.Equal(t, audit.OriginScheduler, entries[0].Origin)
	assert.Equal(t, 2, entries[0].Details["deleted"])
	assert.Equal(t, 1, entries[0].Details["failed"])

	assert.False(t, sweeper.lastAt.IsZero(), "run pins the request clock")
}

func TestRunOnce_NotifiesOnTotalFailure(t *testing.T) {
	ledger := auditstore.NewMemory()
	notifier := &stubNotifier{}
	cause := errors.New("datastore unavailable")
	sweeper := &stubSweeper{err: cause}
	s, err := New(sweeper, "0 3 * * *",
		WithAuditRecorder(auditservice.New(ledger)),
		WithNotifier(notifier),
	)
	require.NoError(t, err)

	s.RunOnce(context.Background())

	require.Len(t, notifier.causes, 1)
	assert.ErrorIs(t, notifier.causes[0], cause)

	entries, err := ledger.List(context.Background(), auditstore.Filter{})
	require.NoError(t, err)
	assert.Empty(t, entries, "failed run writes no summary")
}

func TestRunOnce_SurvivesAuditFailure(t *testing.T) {
	sweeper := &stubSweeper{result: &retention.BatchResult{Processed: 1}}
	s, err := New(sweeper, "0 3 * * *",
		WithAuditRecorder(&failingRecorder{err: errors.New("ledger down")}),
	)
	require.NoError(t, err)

	s.RunOnce(context.Background())

	assert.Equal(t, 1, sweeper.callCount())
}
