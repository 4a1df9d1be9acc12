package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"compass/internal/audit"
	"compass/internal/registration"
	"compass/internal/user"
	id "compass/pkg/domain"
	"compass/pkg/platform/sentinel"
	"compass/pkg/testutil"
)

// TestDeletionLifecycle walks the whole retention story: a guest attends a
// workshop, asks for deletion during the retention window, waits it out
// suspended, and is erased by the sweep once the window has passed.
func TestDeletionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var (
		guest        *user.User
		sessID       id.SessionID
		deletionDate time.Time
	)
	eventEnd := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	requestAt := time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC)
	earlySweep := time.Date(2025, 1, 20, 3, 0, 0, 0, time.UTC)
	lateSweep := time.Date(2025, 1, 30, 3, 0, 0, 0, time.UTC)

	testutil.Given(t, "a guest who attended a workshop on new year's day", func(t *testing.T) {
		guest = f.addUser(t, "guest@example.com")
		sessID = f.openSession(t, guest.ID)
		f.addEvent(t, guest.ID, eventEnd, registration.StatusRegistered)
	})

	testutil.When(t, "they request deletion four days later", func(t *testing.T) {
		outcome, err := f.svc.RequestDeletion(ctxAt(requestAt), guest.ID)
		require.NoError(t, err)
		require.False(t, outcome.Immediate)
		require.NotNil(t, outcome.DeletionDate)
		deletionDate = *outcome.DeletionDate
	})

	testutil.Then(t, "the deletion waits out the retention window", func(t *testing.T) {
		assert.True(t, deletionDate.Equal(time.Date(2025, 1, 29, 0, 0, 0, 0, time.UTC)))

		reloaded, err := f.users.FindByID(ctx, guest.ID)
		require.NoError(t, err)
		assert.Equal(t, user.StatusSuspended, reloaded.Status)

		active, err := f.sessionStore.Active(ctx, sessID)
		require.NoError(t, err)
		assert.False(t, active)
	})

	testutil.When(t, "a sweep runs before the deletion date", func(t *testing.T) {
		result, err := f.svc.RunDue(ctxAt(earlySweep))
		require.NoError(t, err)
		assert.Zero(t, result.Processed)

		_, err = f.users.FindByID(ctx, guest.ID)
		require.NoError(t, err, "account must survive until its deletion date")
	})

	testutil.When(t, "a sweep runs after the deletion date", func(t *testing.T) {
		result, err := f.svc.RunDue(ctxAt(lateSweep))
		require.NoError(t, err)
		assert.Equal(t, 1, result.Processed)
	})

	testutil.Then(t, "the account is gone and only de-identified residue remains", func(t *testing.T) {
		_, err := f.users.FindByID(ctx, guest.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		_, err = f.pending.FindByUser(ctx, guest.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)

		archived, err := f.archive.List(ctx, 10)
		require.NoError(t, err)
		require.Len(t, archived, 1)
		assert.True(t, archived[0].Attended)
		assert.True(t, archived[0].ErasedAt.Equal(lateSweep))

		actions := f.auditActions(t)
		assert.Contains(t, actions, audit.ActionSchedule)
		assert.Contains(t, actions, audit.ActionScheduledDeleteBatchItem)
	})
}
