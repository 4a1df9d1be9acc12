package service

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/sentinel"
	"compass/pkg/requestcontext"
)

// Schedule queues the user's account for deletion at the end of its
// retention window (or immediately when none applies) and suspends the
// account. Queue insert and suspension commit atomically; a user with a
// pending deletion already queued gets a conflict, never a second row or a
// moved date.
func (s *Service) Schedule(ctx context.Context, userID id.UserID) (*retention.PendingDeletion, error) {
	elig, err := s.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.scheduleWithEligibility(ctx, userID, elig)
}

func (s *Service) scheduleWithEligibility(ctx context.Context, userID id.UserID, elig *retention.Eligibility) (*retention.PendingDeletion, error) {
	ctx, span := tracer.Start(ctx, "retention.schedule")
	defer span.End()

	now := requestcontext.Now(ctx)
	deletionDate := now
	if elig.RetainedUntil != nil && elig.RetainedUntil.After(now) {
		deletionDate = *elig.RetainedUntil
	}

	pending := &retention.PendingDeletion{
		UserID:       userID,
		DeletionDate: deletionDate,
		CreatedAt:    now,
	}

	err := s.txRunner.RunInTx(ctx, func(ctx context.Context) error {
		u, err := s.stores.Users.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "user not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
		}
		if err := s.stores.Pending.Create(ctx, pending); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return dErrors.New(dErrors.CodeConflict, "deletion already scheduled")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to queue deletion")
		}
		if u.IsActive() {
			if err := s.stores.Users.Suspend(ctx, userID, now); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to suspend user")
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("deletion_date", deletionDate.Format(time.RFC3339)))
	s.noteScheduled(ctx, pending)
	return pending, nil
}

func (s *Service) noteScheduled(ctx context.Context, pending *retention.PendingDeletion) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "deletion scheduled",
			"user_id", pending.UserID,
			"deletion_date", pending.DeletionDate)
	}
	if s.metrics != nil {
		s.metrics.IncrementScheduled()
	}
}
