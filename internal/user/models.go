package user

import (
	"strings"
	"time"

	id "compass/pkg/domain"
	dErrors "compass/pkg/domain-errors"
)

// Status is the stored account state. Erasure is not a status: an erased
// account has no row at all, only an archive residue.
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
)

// CanTransitionTo reports whether the state machine allows the move.
// The only stored transition is active -> suspended; suspension is the
// holding state while a pending deletion waits out the retention window.
func (s Status) CanTransitionTo(target Status) bool {
	return s == StatusActive && target == StatusSuspended
}

// User is the identity and personal-data record.
//
// Invariants:
//   - Email is non-empty and unique (enforced by the store)
//   - Status transitions: active -> suspended only; there is no way back,
//     a suspended account either waits out its pending deletion or is erased
//   - Status and final removal are mutated exclusively by the deletion
//     subsystem; the rest of the application treats them as read-only
type User struct {
	ID            id.UserID
	Email         string
	DisplayName   string
	PasswordHash  string
	PostalAddress string
	Phone         string
	Locale        string
	Status        Status
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// CanSuspend checks whether the account may transition to suspended.
// Use with ApplySuspension when the check and the mutation straddle a
// transaction boundary.
func (u *User) CanSuspend() error {
	if !u.Status.CanTransitionTo(StatusSuspended) {
		return dErrors.New(dErrors.CodeInvariantViolation, "user is already suspended")
	}
	return nil
}

// ApplySuspension transitions the account to suspended and stamps the time.
// Call CanSuspend first to validate the transition.
func (u *User) ApplySuspension(now time.Time) {
	u.Status = StatusSuspended
	u.UpdatedAt = now
}

// Suspend validates and applies suspension in one call.
func (u *User) Suspend(now time.Time) error {
	if err := u.CanSuspend(); err != nil {
		return err
	}
	u.ApplySuspension(now)
	return nil
}

// New constructs an active user.
func New(userID id.UserID, email, displayName, passwordHash string, now time.Time) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email cannot be empty")
	}
	if !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "email must contain @")
	}
	if displayName == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name cannot be empty")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	return &User{
		ID:           userID,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Locale:       "en",
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
