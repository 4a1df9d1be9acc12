package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"compass/internal/audit"
	id "compass/pkg/domain"
	"compass/pkg/platform/tx"
)

// PostgresStore persists audit entries in PostgreSQL. The table doubles as a
// transactional outbox: entries are written in the same transaction as the
// state change they describe and relayed to Kafka afterwards.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed audit store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) execer(ctx context.Context) tx.DB {
	return tx.Executor(ctx, s.db)
}

// Append inserts one entry. It participates in any transaction carried by ctx
// so ledger writes commit atomically with the change they record.
func (s *PostgresStore) Append(ctx context.Context, entry *audit.Entry) error {
	if entry == nil {
		return fmt.Errorf("audit entry is required")
	}
	details, err := json.Marshal(detailsOrEmpty(entry.Details))
	if err != nil {
		return fmt.Errorf("marshal audit details: %w", err)
	}

	var actorID *uuid.UUID
	if entry.ActorID != nil {
		actor := uuid.UUID(*entry.ActorID)
		actorID = &actor
	}

	query := `
		INSERT INTO audit_entries (id, actor_id, action, details, origin, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entry.ID),
		actorID,
		string(entry.Action),
		details,
		entry.Origin,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Filter narrows List results. Zero values mean no restriction.
type Filter struct {
	Action  audit.Action
	ActorID *id.UserID
	Limit   int
}

const defaultListLimit = 100

// List returns entries newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]*audit.Entry, error) {
	query := `
		SELECT id, actor_id, action, details, origin, created_at
		FROM audit_entries
	`
	var (
		args  []any
		where string
	)
	if filter.Action != "" {
		args = append(args, string(filter.Action))
		where = " WHERE action = $" + strconv.Itoa(len(args))
	}
	if filter.ActorID != nil {
		args = append(args, uuid.UUID(*filter.ActorID))
		if where == "" {
			where = " WHERE"
		} else {
			where += " AND"
		}
		where += " actor_id = $" + strconv.Itoa(len(args))
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += where + " ORDER BY created_at DESC LIMIT $" + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// ListUnpublished returns the oldest entries not yet relayed to Kafka.
func (s *PostgresStore) ListUnpublished(ctx context.Context, limit int) ([]*audit.Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query := `
		SELECT id, actor_id, action, details, origin, created_at
		FROM audit_entries
		WHERE published_at IS NULL
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query unpublished audit entries: %w", err)
	}
	defer rows.Close()

	return scanEntries(rows)
}

// MarkPublished stamps entries as relayed so they drop out of the outbox scan.
func (s *PostgresStore) MarkPublished(ctx context.Context, ids []id.AuditID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]uuid.UUID, len(ids))
	for i, entryID := range ids {
		raw[i] = uuid.UUID(entryID)
	}
	query := `UPDATE audit_entries SET published_at = $1 WHERE id = ANY($2)`
	if _, err := s.db.ExecContext(ctx, query, at, pq.Array(raw)); err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	return nil
}

func scanEntries(rows *sql.Rows) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	for rows.Next() {
		var (
			entryID uuid.UUID
			actorID *uuid.UUID
			action  string
			details []byte
			entry   audit.Entry
		)
		if err := rows.Scan(&entryID, &actorID, &action, &details, &entry.Origin, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		entry.ID = id.AuditID(entryID)
		entry.Action = audit.Action(action)
		if actorID != nil {
			actor := id.UserID(*actorID)
			entry.ActorID = &actor
		}
		if len(details) > 0 {
			if err := json.Unmarshal(details, &entry.Details); err != nil {
				return nil, fmt.Errorf("unmarshal audit details: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}

func detailsOrEmpty(details map[string]any) map[string]any {
	if details == nil {
		return map[string]any{}
	}
	return details
}
