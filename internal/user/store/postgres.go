package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"compass/internal/user"
	id "compass/pkg/domain"
	"compass/pkg/platform/sentinel"
	"compass/pkg/platform/tx"
)

// PostgresStore persists users in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed user store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.DB {
	return tx.Executor(ctx, s.db)
}

const userColumns = `id, email, display_name, password_hash, postal_address, phone, locale, status, created_at, updated_at`

// Create inserts a user. A duplicate email surfaces as sentinel.ErrConflict.
func (s *PostgresStore) Create(ctx context.Context, u *user.User) error {
	if u == nil {
		return fmt.Errorf("user is required")
	}
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.Email,
		u.DisplayName,
		u.PasswordHash,
		u.PostalAddress,
		u.Phone,
		u.Locale,
		string(u.Status),
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// FindByID returns the user or sentinel.ErrNotFound.
func (s *PostgresStore) FindByID(ctx context.Context, userID id.UserID) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID)))
}

// FindByEmail returns the user or sentinel.ErrNotFound. Lookup is
// case-insensitive because New lowercases on construction.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, strings.ToLower(strings.TrimSpace(email))))
}

// Suspend flips the account to suspended. Participates in the scheduling
// transaction carried by ctx.
func (s *PostgresStore) Suspend(ctx context.Context, userID id.UserID, now time.Time) error {
	query := `UPDATE users SET status = $1, updated_at = $2 WHERE id = $3`
	res, err := s.execer(ctx).ExecContext(ctx, query, string(user.StatusSuspended), now, uuid.UUID(userID))
	if err != nil {
		return fmt.Errorf("suspend user %s: %w", userID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("suspend user %s: %w", userID, err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes the user row. Runs inside the erasure transaction; callers
// check existence first, so zero affected rows is not an error here.
func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID) error {
	if _, err := s.execer(ctx).ExecContext(ctx, `DELETE FROM users WHERE id = $1`, uuid.UUID(userID)); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) scanOne(row *sql.Row) (*user.User, error) {
	var (
		userID uuid.UUID
		status string
		u      user.User
	)
	err := row.Scan(
		&userID,
		&u.Email,
		&u.DisplayName,
		&u.PasswordHash,
		&u.PostalAddress,
		&u.Phone,
		&u.Locale,
		&status,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = id.UserID(userID)
	u.Status = user.Status(status)
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation"
}
