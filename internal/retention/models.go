package retention

import (
	"time"

	id "compass/pkg/domain"
)

// Reason explains an eligibility decision.
type Reason string

const (
	// ReasonNoAttendance: the user never attended an event, so no retention
	// obligation exists and erasure is immediately permitted.
	ReasonNoAttendance Reason = "no-attendance"

	// ReasonRetentionElapsed: the user attended, but the retention window
	// after their last attendance has passed.
	ReasonRetentionElapsed Reason = "retention-elapsed"

	// ReasonRetentionActive: the user attended and the retention window is
	// still running; erasure must wait until RetainedUntil.
	ReasonRetentionActive Reason = "retention-active"
)

// Eligibility is the outcome of evaluating whether a user's data may be
// erased right now. RetainedUntil is set whenever the user has attended at
// least one event; it marks the first moment erasure becomes legal.
type Eligibility struct {
	Eligible      bool
	Reason        Reason
	RetainedUntil *time.Time
}

// PendingDeletion queues a user for erasure once their retention window runs
// out. At most one row exists per user; re-scheduling is rejected, never
// overwritten. The row is consumed by the executor and deleted in the same
// transaction as the erasure itself.
type PendingDeletion struct {
	UserID       id.UserID
	DeletionDate time.Time
	CreatedAt    time.Time
}

// Due reports whether the deletion date has been reached at the given instant.
func (p *PendingDeletion) Due(now time.Time) bool {
	return !p.DeletionDate.After(now)
}

// ArchiveRecord is the de-identified residue kept after erasure for
// statistical and compliance purposes. It is created exactly once per
// erasure and never updated or deleted.
//
// The field list is the privacy contract: coarse facts only. Nothing here
// may identify the erased person. Postal address, phone numbers, email,
// names, and credentials must never be added.
type ArchiveRecord struct {
	ID               id.ArchiveID
	Attended         bool
	AttendedCount    int
	Locale           string
	AccountCreatedAt time.Time
	LastEventEndedAt *time.Time
	ErasedAt         time.Time
}

// BatchResult summarizes one sweep over the due pending deletions.
type BatchResult struct {
	Processed int
	Failed    int
}

// DeletionOutcome is what a self-service deletion request resolves to:
// either the account was erased on the spot, or it was suspended with an
// erasure date in the future.
type DeletionOutcome struct {
	Immediate    bool
	DeletionDate *time.Time
}
