package audit

import (
	"time"

	id "compass/pkg/domain"
)

// Action classifies audit entries by the lifecycle step that produced them.
type Action string

const (
	// ActionSchedule records a user-initiated deletion being queued with a
	// future deletion date.
	ActionSchedule Action = "schedule"

	// ActionImmediateDelete records a user-initiated deletion executed
	// straight away because no retention applied.
	ActionImmediateDelete Action = "immediate-delete"

	// ActionScheduledDeleteBatchItem records one account erased during a
	// periodic sweep.
	ActionScheduledDeleteBatchItem Action = "scheduled-delete-batch-item"

	// ActionScheduledDeleteBatch summarizes a completed sweep run: how many
	// accounts were erased and how many failed.
	ActionScheduledDeleteBatch Action = "scheduled-delete-batch"

	// ActionDeletionFailed records a sweep item that could not be erased and
	// stays queued for the next run.
	ActionDeletionFailed Action = "deletion-failed"

	// ActionManualTrigger records an operator starting a sweep by hand.
	ActionManualTrigger Action = "manual-trigger"

	// ActionLogin records a successful credential exchange.
	ActionLogin Action = "login"
)

// Entry is a single append-only audit record. ActorID is a plain nullable
// reference rather than a foreign key: the ledger must survive erasure of
// the account it describes.
type Entry struct {
	ID        id.AuditID
	ActorID   *id.UserID
	Action    Action
	Details   map[string]any
	Origin    string
	CreatedAt time.Time
}

// Origins attached to entries so readers can tell who drove the deletion.
const (
	OriginSelfService = "self-service"
	OriginScheduler   = "scheduler"
	OriginAdmin       = "admin"
)
