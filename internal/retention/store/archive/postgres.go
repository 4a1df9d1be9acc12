package archive

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"compass/internal/retention"
	id "compass/pkg/domain"
	"compass/pkg/platform/tx"
)

// PostgresStore persists de-identified deletion records. The table carries
// no foreign keys on purpose: its rows must outlive the users they
// summarize.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed archive store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.DB {
	return tx.Executor(ctx, s.db)
}

// Create inserts an archive record.
func (s *PostgresStore) Create(ctx context.Context, rec *retention.ArchiveRecord) error {
	if rec == nil {
		return fmt.Errorf("archive record is required")
	}
	query := `
		INSERT INTO deletion_archive (id, attended, attended_count, locale, account_created_at, last_event_ended_at, erased_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(rec.ID),
		rec.Attended,
		rec.AttendedCount,
		rec.Locale,
		rec.AccountCreatedAt,
		rec.LastEventEndedAt,
		rec.ErasedAt,
	)
	if err != nil {
		return fmt.Errorf("insert archive record: %w", err)
	}
	return nil
}

// List returns archive records newest-erasure-first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]*retention.ArchiveRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, attended, attended_count, locale, account_created_at, last_event_ended_at, erased_at
		FROM deletion_archive
		ORDER BY erased_at DESC
		LIMIT $1
	`
	rows, err := s.execer(ctx).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query archive records: %w", err)
	}
	defer rows.Close()

	var out []*retention.ArchiveRecord
	for rows.Next() {
		var (
			recID uuid.UUID
			rec   retention.ArchiveRecord
		)
		if err := rows.Scan(
			&recID,
			&rec.Attended,
			&rec.AttendedCount,
			&rec.Locale,
			&rec.AccountCreatedAt,
			&rec.LastEventEndedAt,
			&rec.ErasedAt,
		); err != nil {
			return nil, fmt.Errorf("scan archive record: %w", err)
		}
		rec.ID = id.ArchiveID(recID)
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive records: %w", err)
	}
	return out, nil
}

const defaultListLimit = 100
