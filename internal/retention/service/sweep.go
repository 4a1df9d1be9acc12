package service

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"compass/internal/audit"
	"compass/internal/retention"
	dErrors "compass/pkg/domain-errors"
	"compass/pkg/requestcontext"
)

// RunDue erases every account whose deletion date has been reached. Items
// run concurrently up to the configured limit, each in its own transaction,
// so one failed erasure neither aborts the batch nor poisons another item's
// transaction. Failed items stay queued and are retried on the next run;
// only a failure to list the queue itself is returned as an error.
func (s *Service) RunDue(ctx context.Context) (*retention.BatchResult, error) {
	ctx, span := tracer.Start(ctx, "retention.sweep")
	defer span.End()
	started := time.Now()

	due, err := s.stores.Pending.ListDue(ctx, requestcontext.Now(ctx))
	if err != nil {
		span.RecordError(err)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list due deletions")
	}

	var (
		mu     sync.Mutex
		result retention.BatchResult
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.sweepConcurrency)
	for _, item := range due {
		g.Go(func() error {
			if s.processDueItem(gctx, item) {
				mu.Lock()
				result.Processed++
				mu.Unlock()
			} else {
				mu.Lock()
				result.Failed++
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	span.SetAttributes(
		attribute.Int("due", len(due)),
		attribute.Int("deleted", result.Processed),
		attribute.Int("failed", result.Failed),
	)
	s.noteSweep(ctx, &result, time.Since(started))
	return &result, nil
}

// processDueItem erases one queued account and reports success. Both
// outcomes land in the audit ledger with the scheduler as origin; the item's
// own entry carries the subject so failed deletions can be chased.
func (s *Service) processDueItem(ctx context.Context, item *retention.PendingDeletion) bool {
	res, err := s.executeInTx(ctx, item.UserID)
	if err != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "scheduled deletion failed",
				"user_id", item.UserID,
				"deletion_date", item.DeletionDate,
				"error", err)
		}
		s.logAudit(ctx, nil, audit.ActionDeletionFailed, audit.OriginScheduler, map[string]any{
			"user_id": item.UserID.String(),
			"error":   err.Error(),
		})
		return false
	}

	details := map[string]any{
		"user_id":               item.UserID.String(),
		"registrations_removed": res.RegistrationsRemoved,
		"attended_count":        res.AttendedCount,
	}
	if res.AlreadyErased {
		details = map[string]any{
			"user_id":        item.UserID.String(),
			"already_erased": true,
		}
	}
	s.logAudit(ctx, nil, audit.ActionScheduledDeleteBatchItem, audit.OriginScheduler, details)
	return true
}

func (s *Service) noteSweep(ctx context.Context, result *retention.BatchResult, elapsed time.Duration) {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "deletion sweep finished",
			"deleted", result.Processed,
			"failed", result.Failed,
			"elapsed", elapsed)
	}
	if s.metrics != nil {
		s.metrics.AddExecuted(result.Processed)
		s.metrics.AddFailures(result.Failed)
		s.metrics.ObserveSweep(elapsed)
	}
}
