// Package postgres opens the relational datastore and owns its schema
// bootstrap. The schema is applied with idempotent statements at startup so a
// fresh database (or a test container) is usable without a separate migration
// step.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"compass/internal/platform/config"
)

// Open connects to Postgres, applies pool settings, and verifies the
// connection with a bounded ping.
func Open(ctx context.Context, cfg config.PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// schemaStatements create every table this service owns. Statements are
// idempotent and ordered so referenced tables exist before their referrers.
//
// Two tables deliberately carry no foreign key to users:
//   - deletion_archive rows outlive the user they de-identify
//   - audit_entries record actors that may already be erased
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id             UUID PRIMARY KEY,
		email          TEXT NOT NULL UNIQUE,
		display_name   TEXT NOT NULL,
		password_hash  TEXT NOT NULL,
		postal_address TEXT NOT NULL DEFAULT '',
		phone          TEXT NOT NULL DEFAULT '',
		locale         TEXT NOT NULL DEFAULT 'en',
		status         TEXT NOT NULL DEFAULT 'active',
		created_at     TIMESTAMPTZ NOT NULL,
		updated_at     TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS events (
		id         UUID PRIMARY KEY,
		title      TEXT NOT NULL,
		starts_at  TIMESTAMPTZ NOT NULL,
		ends_at    TIMESTAMPTZ,
		created_by UUID REFERENCES users(id),
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS registrations (
		id         UUID PRIMARY KEY,
		user_id    UUID NOT NULL REFERENCES users(id),
		event_id   UUID NOT NULL REFERENCES events(id),
		status     TEXT NOT NULL DEFAULT 'registered',
		created_at TIMESTAMPTZ NOT NULL,
		UNIQUE (user_id, event_id)
	)`,
	// No foreign key: the executor deletes the user row before this one in the
	// same transaction, and the per-user uniqueness invariant lives in the
	// primary key itself.
	`CREATE TABLE IF NOT EXISTS pending_deletions (
		user_id       UUID PRIMARY KEY,
		deletion_date TIMESTAMPTZ NOT NULL,
		created_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deletion_archive (
		id                  UUID PRIMARY KEY,
		attended            BOOLEAN NOT NULL,
		attended_count      INTEGER NOT NULL,
		locale              TEXT NOT NULL,
		account_created_at  TIMESTAMPTZ NOT NULL,
		last_event_ended_at TIMESTAMPTZ,
		erased_at           TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS audit_entries (
		id           UUID PRIMARY KEY,
		actor_id     UUID,
		action       TEXT NOT NULL,
		details      JSONB NOT NULL DEFAULT '{}',
		origin       TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMPTZ NOT NULL,
		published_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_pending_deletions_due ON pending_deletions (deletion_date)`,
	`CREATE INDEX IF NOT EXISTS idx_registrations_user ON registrations (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_action ON audit_entries (action, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_entries_unpublished ON audit_entries (created_at) WHERE published_at IS NULL`,
}

// EnsureSchema creates all tables and indexes this service owns.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema statement: %w", err)
		}
	}
	return nil
}
