package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"compass/internal/registration"
	"compass/internal/retention"
	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

// Evaluate decides whether the user's account may be erased right now.
//
// A user with no attended events is eligible immediately. Otherwise account
// data is retained until the configured window has passed since the end of
// the last attended event; a boundary hit (now equals retained-until) counts
// as elapsed. Cancelled registrations and events still in the future never
// extend retention.
func (s *Service) Evaluate(ctx context.Context, userID id.UserID) (*retention.Eligibility, error) {
	ctx, span := tracer.Start(ctx, "retention.evaluate")
	defer span.End()

	records, err := s.stores.Attendance.ListAttendance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendance history")
	}

	now := requestcontext.Now(ctx)
	lastEnd := lastAttendedEnd(records, now)
	if lastEnd == nil {
		span.SetAttributes(attribute.Bool("eligible", true))
		return &retention.Eligibility{
			Eligible: true,
			Reason:   retention.ReasonNoAttendance,
		}, nil
	}

	retainedUntil := lastEnd.Add(s.window)
	eligible := !retainedUntil.After(now)
	span.SetAttributes(attribute.Bool("eligible", eligible))

	reason := retention.ReasonRetentionActive
	if eligible {
		reason = retention.ReasonRetentionElapsed
	}
	return &retention.Eligibility{
		Eligible:      eligible,
		Reason:        reason,
		RetainedUntil: &retainedUntil,
	}, nil
}

// lastAttendedEnd returns the latest effective end among attended events,
// or nil when nothing counts as attended at the given instant.
func lastAttendedEnd(records []*registration.AttendanceRecord, now time.Time) *time.Time {
	var last *time.Time
	for _, rec := range records {
		if !rec.Attended(now) {
			continue
		}
		end := rec.EffectiveEnd()
		if last == nil || end.After(*last) {
			last = &end
		}
	}
	return last
}
