package registration

import (
	"time"

	id "compass/pkg/domain"
)

// Status marks where a registration sits in the workshop workflow. Only
// cancellation matters for retention; the other markers belong to the
// registration desk and may lag reality.
type Status string

const (
	StatusRegistered Status = "registered"
	StatusAttended   Status = "attended"
	StatusCancelled  Status = "cancelled"
	StatusNoShow     Status = "no_show"
)

// Event is a workshop with a start and an optional end.
type Event struct {
	ID        id.EventID
	Title     string
	StartsAt  time.Time
	EndsAt    *time.Time
	CreatedBy *id.UserID
	CreatedAt time.Time
}

// EffectiveEnd is the moment the event is over: the end date when one is
// set, otherwise the start date.
func (e *Event) EffectiveEnd() time.Time {
	if e.EndsAt != nil {
		return *e.EndsAt
	}
	return e.StartsAt
}

// Registration links a user to an event.
type Registration struct {
	ID        id.RegistrationID
	UserID    id.UserID
	EventID   id.EventID
	Status    Status
	CreatedAt time.Time
}

// AttendanceRecord is the read model the retention evaluator consumes: one
// row per registration joined with its event's dates.
type AttendanceRecord struct {
	RegistrationID id.RegistrationID
	EventID        id.EventID
	Status         Status
	EventStart     time.Time
	EventEnd       *time.Time
}

// EffectiveEnd mirrors Event.EffectiveEnd for the joined row.
func (a *AttendanceRecord) EffectiveEnd() time.Time {
	if a.EventEnd != nil {
		return *a.EventEnd
	}
	return a.EventStart
}

// Attended reports whether this registration counts as attendance at the
// given instant: not cancelled, and the event is over. Attendance is inferred
// from the event's time window, not from the desk's status marker.
func (a *AttendanceRecord) Attended(now time.Time) bool {
	if a.Status == StatusCancelled {
		return false
	}
	return a.EffectiveEnd().Before(now)
}
