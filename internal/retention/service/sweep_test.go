package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"compass/internal/audit"
	"compass/internal/registration"
	"compass/internal/retention"
	"compass/internal/retention/service/mocks"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/sentinel"
)

func TestRunDue_ErasesOnlyDueAccounts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC)

	due1 := f.addUser(t, "one@example.com")
	due2 := f.addUser(t, "two@example.com")
	future := f.addUser(t, "three@example.com")
	for _, p := range []*retention.PendingDeletion{
		{UserID: due1.ID, DeletionDate: now.Add(-time.Hour), CreatedAt: now.Add(-28 * 24 * time.Hour)},
		{UserID: due2.ID, DeletionDate: now, CreatedAt: now.Add(-28 * 24 * time.Hour)},
		{UserID: future.ID, DeletionDate: now.Add(time.Hour), CreatedAt: now.Add(-28 * 24 * time.Hour)},
	} {
		require.NoError(t, f.pending.Create(ctx, p))
	}

	result, err := f.svc.RunDue(ctxAt(now))
	require.NoError(t, err)

	assert.Equal(t, 2, result.Processed)
	assert.Zero(t, result.Failed)

	_, err = f.users.FindByID(ctx, due1.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	_, err = f.users.FindByID(ctx, due2.ID)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	_, err = f.users.FindByID(ctx, future.ID)
	require.NoError(t, err)
	_, err = f.pending.FindByUser(ctx, future.ID)
	require.NoError(t, err)
}

func TestRunDue_EmptyQueueIsNoop(t *testing.T) {
	f := newFixture(t)

	result, err := f.svc.RunDue(ctxAt(time.Now()))
	require.NoError(t, err)

	assert.Zero(t, result.Processed)
	assert.Zero(t, result.Failed)
	assert.Empty(t, f.auditActions(t))
}

func TestRunDue_RecordsBatchItemAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC)

	u := f.addUser(t, "guest@example.com")
	f.addEvent(t, u.ID, now.Add(-40*24*time.Hour), registration.StatusRegistered)
	require.NoError(t, f.pending.Create(ctx, &retention.PendingDeletion{
		UserID:       u.ID,
		DeletionDate: now.Add(-time.Hour),
		CreatedAt:    now.Add(-29 * 24 * time.Hour),
	}))

	result, err := f.svc.RunDue(ctxAt(now))
	require.NoError(t, err)
	require.Equal(t, 1, result.Processed)

	entry := f.findAuditEntry(t, audit.ActionScheduledDeleteBatchItem)
	assert.Nil(t, entry.ActorID)
	assert.Equal(t, audit.OriginScheduler, entry.Origin)
	assert.Equal(t, u.ID.String(), entry.Details["user_id"])
	assert.Equal(t, 1, entry.Details["registrations_removed"])
}

// =============================================================================
// Sweep Failure Suite
// =============================================================================
// Failure paths are scripted with mocks: a store that fails mid-erasure is
// hard to stage against real memory stores, and the batch contract (one bad
// item never aborts the rest) is exactly what these tests pin down.

type SweepFailureSuite struct {
	suite.Suite
	ctrl        *gomock.Controller
	mockPending *mocks.MockPendingStore
	mockTx      *mocks.MockTxRunner
	mockSess    *mocks.MockSessionRevoker
	mockAudit   *mocks.MockAuditRecorder
	service     *Service
}

func TestSweepFailureSuite(t *testing.T) {
	suite.Run(t, new(SweepFailureSuite))
}

func (s *SweepFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockPending = mocks.NewMockPendingStore(s.ctrl)
	s.mockTx = mocks.NewMockTxRunner(s.ctrl)
	s.mockSess = mocks.NewMockSessionRevoker(s.ctrl)
	s.mockAudit = mocks.NewMockAuditRecorder(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.service = New(
		Stores{Pending: s.mockPending},
		s.mockSess,
		s.mockTx,
		testWindow,
		WithLogger(logger),
		WithAuditRecorder(s.mockAudit),
		// Sequential processing keeps the scripted call order deterministic.
		WithSweepConcurrency(1),
	)
}

func (s *SweepFailureSuite) TestListFailureAbortsSweep() {
	s.mockPending.EXPECT().
		ListDue(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := s.service.RunDue(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func (s *SweepFailureSuite) TestFailedItemDoesNotAbortBatch() {
	now := time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC)
	broken := &retention.PendingDeletion{UserID: id.NewUserID(), DeletionDate: now.Add(-2 * time.Hour)}
	healthy := &retention.PendingDeletion{UserID: id.NewUserID(), DeletionDate: now.Add(-time.Hour)}

	s.mockPending.EXPECT().
		ListDue(gomock.Any(), gomock.Any()).
		Return([]*retention.PendingDeletion{broken, healthy}, nil)
	gomock.InOrder(
		s.mockTx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(errors.New("deadlock detected")),
		s.mockTx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(nil),
	)
	s.mockSess.EXPECT().RevokeAllForUser(gomock.Any(), healthy.UserID).Return(0, nil)
	s.mockAudit.EXPECT().
		Record(gomock.Any(), gomock.Nil(), audit.ActionDeletionFailed, audit.OriginScheduler, gomock.Any()).
		Return(nil)
	s.mockAudit.EXPECT().
		Record(gomock.Any(), gomock.Nil(), audit.ActionScheduledDeleteBatchItem, audit.OriginScheduler, gomock.Any()).
		Return(nil)

	result, err := s.service.RunDue(context.Background())
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Equal(1, result.Failed)
}

func (s *SweepFailureSuite) TestAuditFailureDoesNotFailItem() {
	now := time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC)
	item := &retention.PendingDeletion{UserID: id.NewUserID(), DeletionDate: now.Add(-time.Hour)}

	s.mockPending.EXPECT().
		ListDue(gomock.Any(), gomock.Any()).
		Return([]*retention.PendingDeletion{item}, nil)
	s.mockTx.EXPECT().RunInTx(gomock.Any(), gomock.Any()).Return(nil)
	s.mockSess.EXPECT().RevokeAllForUser(gomock.Any(), item.UserID).Return(0, nil)
	s.mockAudit.EXPECT().
		Record(gomock.Any(), gomock.Nil(), audit.ActionScheduledDeleteBatchItem, audit.OriginScheduler, gomock.Any()).
		Return(errors.New("ledger unavailable"))

	result, err := s.service.RunDue(context.Background())
	s.Require().NoError(err)
	s.Equal(1, result.Processed)
	s.Zero(result.Failed)
}
