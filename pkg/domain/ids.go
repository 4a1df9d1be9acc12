// Package domain holds the typed identifiers shared across modules.
//
// Each entity gets its own UUID-backed type so identifiers cannot be swapped
// across entities by accident; a RegistrationID handed to a function expecting
// a UserID is a compile error, not a data leak.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "compass/pkg/domain-errors"
)

// Typed identifiers. The zero value is the nil UUID and is never valid for a
// persisted entity; Parse helpers reject it at trust boundaries.
type (
	UserID         uuid.UUID
	EventID        uuid.UUID
	RegistrationID uuid.UUID
	SessionID      uuid.UUID
	ArchiveID      uuid.UUID
	AuditID        uuid.UUID
)

func (i UserID) String() string         { return uuid.UUID(i).String() }
func (i EventID) String() string        { return uuid.UUID(i).String() }
func (i RegistrationID) String() string { return uuid.UUID(i).String() }
func (i SessionID) String() string      { return uuid.UUID(i).String() }
func (i ArchiveID) String() string      { return uuid.UUID(i).String() }
func (i AuditID) String() string        { return uuid.UUID(i).String() }

func (i UserID) IsNil() bool         { return uuid.UUID(i) == uuid.Nil }
func (i EventID) IsNil() bool        { return uuid.UUID(i) == uuid.Nil }
func (i RegistrationID) IsNil() bool { return uuid.UUID(i) == uuid.Nil }
func (i SessionID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i ArchiveID) IsNil() bool      { return uuid.UUID(i) == uuid.Nil }
func (i AuditID) IsNil() bool        { return uuid.UUID(i) == uuid.Nil }

// NewUserID mints a random identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewEventID mints a random identifier.
func NewEventID() EventID { return EventID(uuid.New()) }

// NewRegistrationID mints a random identifier.
func NewRegistrationID() RegistrationID { return RegistrationID(uuid.New()) }

// NewSessionID mints a random identifier.
func NewSessionID() SessionID { return SessionID(uuid.New()) }

// NewArchiveID mints a random identifier.
func NewArchiveID() ArchiveID { return ArchiveID(uuid.New()) }

// NewAuditID mints a random identifier.
func NewAuditID() AuditID { return AuditID(uuid.New()) }

// ParseUserID parses and validates an external identifier.
func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw)
	return UserID(parsed), err
}

// ParseEventID parses and validates an external identifier.
func ParseEventID(raw string) (EventID, error) {
	parsed, err := parseUUID(raw)
	return EventID(parsed), err
}

// ParseRegistrationID parses and validates an external identifier.
func ParseRegistrationID(raw string) (RegistrationID, error) {
	parsed, err := parseUUID(raw)
	return RegistrationID(parsed), err
}

// ParseSessionID parses and validates an external identifier.
func ParseSessionID(raw string) (SessionID, error) {
	parsed, err := parseUUID(raw)
	return SessionID(parsed), err
}

// ParseArchiveID parses and validates an external identifier.
func ParseArchiveID(raw string) (ArchiveID, error) {
	parsed, err := parseUUID(raw)
	return ArchiveID(parsed), err
}

// ParseAuditID parses and validates an external identifier.
func ParseAuditID(raw string) (AuditID, error) {
	parsed, err := parseUUID(raw)
	return AuditID(parsed), err
}

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. All Parse helpers funnel through here so every ID type
// validates identically.
func parseUUID(raw string) (uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id must be a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}
