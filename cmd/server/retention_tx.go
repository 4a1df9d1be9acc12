package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "compass/pkg/domain-errors"
	"compass/pkg/platform/tx"
)

const defaultRetentionTxTimeout = 10 * time.Second

// retentionPostgresTx runs deletion work inside one postgres transaction,
// carried to the stores through the context. An erasure touches several
// tables, so a timeout caps how long a wedged lock can hold the sweep open.
type retentionPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newRetentionPostgresTx(db *sql.DB) *retentionPostgresTx {
	return &retentionPostgresTx{db: db}
}

func (t *retentionPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultRetentionTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return tx.RunInTx(ctx, t.db, fn)
}
