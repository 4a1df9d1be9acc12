package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"compass/internal/audit"
	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
)

// RequestDeletion handles a user asking for their own account to go away.
// Eligible accounts are erased on the spot; retained ones are suspended and
// queued for the end of their window. Either way the user's sessions are
// revoked before this returns, including on error: a request that failed
// half-way must still leave the requester logged out.
func (s *Service) RequestDeletion(ctx context.Context, userID id.UserID) (*retention.DeletionOutcome, error) {
	ctx, span := tracer.Start(ctx, "retention.request_deletion")
	defer span.End()
	defer s.terminateSessions(ctx, userID)

	elig, err := s.Evaluate(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if elig.Eligible {
		res, err := s.executeInTx(ctx, userID)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		span.SetAttributes(attribute.Bool("immediate", true))
		s.noteImmediate(ctx, userID)
		s.logAudit(ctx, &userID, audit.ActionImmediateDelete, audit.OriginSelfService, map[string]any{
			"reason":                string(elig.Reason),
			"registrations_removed": res.RegistrationsRemoved,
		})
		return &retention.DeletionOutcome{Immediate: true}, nil
	}

	pending, err := s.scheduleWithEligibility(ctx, userID, elig)
	if err != nil {
		// A second request while one is queued is not a failure from the
		// user's side; answer with the date they already have.
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			if existing, findErr := s.stores.Pending.FindByUser(ctx, userID); findErr == nil {
				span.SetAttributes(attribute.Bool("immediate", false))
				return &retention.DeletionOutcome{Immediate: false, DeletionDate: &existing.DeletionDate}, nil
			}
		}
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool("immediate", false))
	s.logAudit(ctx, &userID, audit.ActionSchedule, audit.OriginSelfService, map[string]any{
		"reason":        string(elig.Reason),
		"deletion_date": pending.DeletionDate.Format(time.RFC3339),
	})
	return &retention.DeletionOutcome{Immediate: false, DeletionDate: &pending.DeletionDate}, nil
}

// ListPending returns queued deletions due-first for the admin surface.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*retention.PendingDeletion, error) {
	rows, err := s.stores.Pending.List(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list pending deletions")
	}
	return rows, nil
}

func (s *Service) noteImmediate(ctx context.Context, userID id.UserID) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "account erased on request", "user_id", userID)
	}
	if s.metrics != nil {
		s.metrics.IncrementImmediate()
	}
}
