package pending

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"compass/internal/retention"
	id "compass/pkg/domain"
	"compass/pkg/platform/sentinel"
	"compass/pkg/platform/tx"
)

// PostgresStore persists pending deletions in PostgreSQL. The user_id
// primary key enforces the one-pending-deletion-per-user invariant at the
// datastore, so concurrent schedulers cannot slip a second row past the
// service-level check.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed pending-deletion store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.DB {
	return tx.Executor(ctx, s.db)
}

// Create inserts the pending row. A user that already has one surfaces as
// sentinel.ErrConflict; rows are never updated in place.
func (s *PostgresStore) Create(ctx context.Context, p *retention.PendingDeletion) error {
	if p == nil {
		return fmt.Errorf("pending deletion is required")
	}
	query := `
		INSERT INTO pending_deletions (user_id, deletion_date, created_at)
		VALUES ($1, $2, $3)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(p.UserID),
		p.DeletionDate,
		p.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert pending deletion: %w", err)
	}
	return nil
}

// FindByUser returns the user's pending deletion or sentinel.ErrNotFound.
func (s *PostgresStore) FindByUser(ctx context.Context, userID id.UserID) (*retention.PendingDeletion, error) {
	query := `
		SELECT user_id, deletion_date, created_at
		FROM pending_deletions
		WHERE user_id = $1
	`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID))
	return scanPending(row)
}

// ListDue returns every pending deletion whose date has been reached,
// oldest due date first.
func (s *PostgresStore) ListDue(ctx context.Context, now time.Time) ([]*retention.PendingDeletion, error) {
	query := `
		SELECT user_id, deletion_date, created_at
		FROM pending_deletions
		WHERE deletion_date <= $1
		ORDER BY deletion_date ASC
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("query due deletions: %w", err)
	}
	defer rows.Close()
	return scanPendings(rows)
}

// List returns pending deletions due-first for the admin surface.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*retention.PendingDeletion, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT user_id, deletion_date, created_at
		FROM pending_deletions
		ORDER BY deletion_date ASC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending deletions: %w", err)
	}
	defer rows.Close()
	return scanPendings(rows)
}

// Delete removes the user's pending row. Absence is not an error: the
// executor calls this unconditionally at the end of an erasure.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM pending_deletions WHERE user_id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete pending deletion for %s: %w", userID, err)
	}
	return nil
}

const defaultListLimit = 100

func scanPending(row *sql.Row) (*retention.PendingDeletion, error) {
	var (
		userID uuid.UUID
		p      retention.PendingDeletion
	)
	if err := row.Scan(&userID, &p.DeletionDate, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan pending deletion: %w", err)
	}
	p.UserID = id.UserID(userID)
	return &p, nil
}

func scanPendings(rows *sql.Rows) ([]*retention.PendingDeletion, error) {
	var out []*retention.PendingDeletion
	for rows.Next() {
		var (
			userID uuid.UUID
			p      retention.PendingDeletion
		)
		if err := rows.Scan(&userID, &p.DeletionDate, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending deletion: %w", err)
		}
		p.UserID = id.UserID(userID)
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending deletions: %w", err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
