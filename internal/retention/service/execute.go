package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"

	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/sentinel"
	"compass/pkg/requestcontext"
)

// eraseResult reports what one erasure actually removed.
type eraseResult struct {
	AlreadyErased        bool
	AttendedCount        int
	RegistrationsRemoved int
}

// Execute erases the user's account right now, in one transaction: archive
// a de-identified residue, remove registrations, detach authored events,
// delete the user row, and clear any pending deletion. Idempotent: a user
// that no longer exists is a no-op success. Sessions are revoked after the
// transaction commits.
func (s *Service) Execute(ctx context.Context, userID id.UserID) error {
	_, err := s.executeInTx(ctx, userID)
	return err
}

func (s *Service) executeInTx(ctx context.Context, userID id.UserID) (eraseResult, error) {
	ctx, span := tracer.Start(ctx, "retention.execute")
	defer span.End()

	var res eraseResult
	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		var err error
		res, err = s.erase(ctx, userID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return eraseResult{}, err
	}

	span.SetAttributes(attribute.Bool("already_erased", res.AlreadyErased))
	if !res.AlreadyErased {
		s.terminateSessions(ctx, userID)
	}
	return res, nil
}

// erase runs inside the caller's transaction. Order matters: the archive
// insert comes first so a failure there aborts before anything is removed,
// and the pending row goes last so a crash mid-transaction leaves the user
// queued for the next sweep rather than half-deleted.
func (s *Service) erase(ctx context.Context, userID id.UserID) (eraseResult, error) {
	u, err := s.stores.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// Nothing left to erase. Drop any orphaned pending row so the
			// sweep stops revisiting it.
			if err := s.stores.Pending.Delete(ctx, userID); err != nil {
				return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear pending deletion")
			}
			return eraseResult{AlreadyErased: true}, nil
		}
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}

	records, err := s.stores.Attendance.ListAttendance(ctx, userID)
	if err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance history")
	}

	now := requestcontext.Now(ctx)
	attendedCount := 0
	for _, rec := range records {
		if rec.Attended(now) {
			attendedCount++
		}
	}

	archive := &retention.ArchiveRecord{
		ID:               id.NewArchiveID(),
		Attended:         attendedCount > 0,
		AttendedCount:    attendedCount,
		Locale:           u.Locale,
		AccountCreatedAt: u.CreatedAt,
		LastEventEndedAt: lastAttendedEnd(records, now),
		ErasedAt:         now,
	}
	if err := s.stores.Archive.Create(ctx, archive); err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive deletion record")
	}

	removed, err := s.stores.Attendance.RemoveAllForUser(ctx, userID)
	if err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to remove registrations")
	}
	if err := s.stores.Attendance.DetachCreator(ctx, userID); err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to detach authored events")
	}
	if err := s.stores.Users.Delete(ctx, userID); err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete user")
	}
	if err := s.stores.Pending.Delete(ctx, userID); err != nil {
		return eraseResult{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear pending deletion")
	}

	return eraseResult{
		AttendedCount:        attendedCount,
		RegistrationsRemoved: removed,
	}, nil
}
