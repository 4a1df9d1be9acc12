package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"compass/internal/registration"
	id "compass/pkg/domain"
	"compass/pkg/platform/tx"
)

// PostgresStore reads registrations and events from PostgreSQL. The deletion
// subsystem only ever reads here; the Create methods exist to stage fixtures.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed registration store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.DB {
	return tx.Executor(ctx, s.db)
}

// ListAttendance returns every registration for the user joined with its
// event's dates, oldest event first. Cancellation filtering is the caller's
// decision, not the store's.
func (s *PostgresStore) ListAttendance(ctx context.Context, userID id.UserID) ([]*registration.AttendanceRecord, error) {
	query := `
		SELECT r.id, r.event_id, r.status, e.starts_at, e.ends_at
		FROM registrations r
		JOIN events e ON e.id = r.event_id
		WHERE r.user_id = $1
		ORDER BY e.starts_at ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("query attendance for %s: %w", userID, err)
	}
	defer rows.Close()

	var records []*registration.AttendanceRecord
	for rows.Next() {
		var (
			regID   uuid.UUID
			eventID uuid.UUID
			status  string
			record  registration.AttendanceRecord
		)
		if err := rows.Scan(&regID, &eventID, &status, &record.EventStart, &record.EventEnd); err != nil {
			return nil, fmt.Errorf("scan attendance row: %w", err)
		}
		record.RegistrationID = id.RegistrationID(regID)
		record.EventID = id.EventID(eventID)
		record.Status = registration.Status(status)
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance rows: %w", err)
	}
	return records, nil
}

// CreateEvent inserts an event row.
func (s *PostgresStore) CreateEvent(ctx context.Context, event *registration.Event) error {
	if event == nil {
		return fmt.Errorf("event is required")
	}
	var createdBy *uuid.UUID
	if event.CreatedBy != nil {
		creator := uuid.UUID(*event.CreatedBy)
		createdBy = &creator
	}
	query := `
		INSERT INTO events (id, title, starts_at, ends_at, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(event.ID),
		event.Title,
		event.StartsAt,
		event.EndsAt,
		createdBy,
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// CreateRegistration inserts a registration row.
func (s *PostgresStore) CreateRegistration(ctx context.Context, reg *registration.Registration) error {
	if reg == nil {
		return fmt.Errorf("registration is required")
	}
	query := `
		INSERT INTO registrations (id, user_id, event_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(reg.ID),
		uuid.UUID(reg.UserID),
		uuid.UUID(reg.EventID),
		string(reg.Status),
		reg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// RemoveAllForUser deletes every registration row referencing the user.
// Runs inside the erasure transaction carried by ctx.
func (s *PostgresStore) RemoveAllForUser(ctx context.Context, userID id.UserID) (int, error) {
	res, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM registrations WHERE user_id = $1`, uuid.UUID(userID))
	if err != nil {
		return 0, fmt.Errorf("delete registrations for %s: %w", userID, err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted registrations: %w", err)
	}
	return int(removed), nil
}

// DetachCreator nulls the creator reference on events the user created.
// Events outlive their creator; only the reference goes.
func (s *PostgresStore) DetachCreator(ctx context.Context, userID id.UserID) error {
	_, err := s.execer(ctx).ExecContext(ctx, `UPDATE events SET created_by = NULL WHERE created_by = $1`, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("detach event creator %s: %w", userID, err)
	}
	return nil
}

// EventCreatedBy reports who an event row currently references as creator.
// Used to verify reference-nulling after erasure.
func (s *PostgresStore) EventCreatedBy(ctx context.Context, eventID id.EventID) (*id.UserID, error) {
	var createdBy *uuid.UUID
	query := `SELECT created_by FROM events WHERE id = $1`
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(eventID)).Scan(&createdBy); err != nil {
		return nil, fmt.Errorf("query event creator: %w", err)
	}
	if createdBy == nil {
		return nil, nil
	}
	creator := id.UserID(*createdBy)
	return &creator, nil
}

// CountForUser reports how many registration rows reference the user.
// Used to verify cascade removal after erasure.
func (s *PostgresStore) CountForUser(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM registrations WHERE user_id = $1`
	if err := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}
