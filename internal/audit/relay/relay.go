package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"compass/internal/audit"
	"compass/internal/audit/metrics"
	id "compass/pkg/domain"
)

// Store is the slice of the audit store the relay needs: scan the outbox,
// stamp what shipped.
type Store interface {
	ListUnpublished(ctx context.Context, limit int) ([]*audit.Entry, error)
	MarkPublished(ctx context.Context, ids []id.AuditID, at time.Time) error
}

// Producer publishes one audit payload. Keyed by actor so per-user entries
// stay ordered within a partition.
type Producer interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Relay ships committed audit entries from the outbox to Kafka. Entries are
// written in the same transaction as the change they describe, so the relay
// only ever sees durable facts; Kafka unavailability just delays shipping.
type Relay struct {
	store     Store
	producer  Producer
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(r *Relay)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Relay) {
		r.metrics = m
	}
}

func WithInterval(interval time.Duration) Option {
	return func(r *Relay) {
		r.interval = interval
	}
}

func WithBatchSize(size int) Option {
	return func(r *Relay) {
		r.batchSize = size
	}
}

// New constructs a Relay.
func New(store Store, producer Producer, opts ...Option) *Relay {
	r := &Relay{
		store:     store,
		producer:  producer,
		interval:  5 * time.Second,
		batchSize: 256,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run relays outbox entries until ctx is cancelled. Publish failures are
// logged and retried on the next tick; the outbox keeps everything until
// it ships.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := r.drain(ctx); err != nil {
				if r.logger != nil {
					r.logger.ErrorContext(ctx, "audit relay pass failed", "error", err)
				}
				if r.metrics != nil {
					r.metrics.IncrementRelayFailure()
				}
			}
		}
	}
}

// drain ships full batches until the outbox scan comes back short.
func (r *Relay) drain(ctx context.Context) error {
	for {
		shipped, err := r.RelayOnce(ctx)
		if err != nil {
			return err
		}
		if shipped < r.batchSize {
			return nil
		}
	}
}

// RelayOnce ships at most one batch and returns how many entries went out.
// Exported so tests and shutdown hooks can flush deterministically.
func (r *Relay) RelayOnce(ctx context.Context) (int, error) {
	entries, err := r.store.ListUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, fmt.Errorf("scan audit outbox: %w", err)
	}
	if len(entries) == 0 {
		return 0, nil
	}

	shipped := make([]id.AuditID, 0, len(entries))
	for _, entry := range entries {
		value, err := marshalEntry(entry)
		if err != nil {
			return len(shipped), err
		}
		if err := r.producer.Publish(ctx, partitionKey(entry), value); err != nil {
			// Ship what we can; the rest stays queued for the next pass.
			if markErr := r.markShipped(ctx, shipped); markErr != nil {
				return 0, markErr
			}
			return len(shipped), fmt.Errorf("publish audit entry %s: %w", entry.ID, err)
		}
		shipped = append(shipped, entry.ID)
	}

	if err := r.markShipped(ctx, shipped); err != nil {
		return 0, err
	}
	return len(shipped), nil
}

func (r *Relay) markShipped(ctx context.Context, ids []id.AuditID) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.store.MarkPublished(ctx, ids, time.Now()); err != nil {
		return fmt.Errorf("mark audit entries published: %w", err)
	}
	if r.metrics != nil {
		r.metrics.AddRelayPublished(len(ids))
	}
	return nil
}

// payload is the JSON shape published to Kafka.
type payload struct {
	ID        string         `json:"id"`
	ActorID   string         `json:"actor_id,omitempty"`
	Action    string         `json:"action"`
	Details   map[string]any `json:"details,omitempty"`
	Origin    string         `json:"origin,omitempty"`
	CreatedAt string         `json:"created_at"`
}

func marshalEntry(entry *audit.Entry) ([]byte, error) {
	p := payload{
		ID:        entry.ID.String(),
		Action:    string(entry.Action),
		Details:   entry.Details,
		Origin:    entry.Origin,
		CreatedAt: entry.CreatedAt.Format(time.RFC3339Nano),
	}
	if entry.ActorID != nil {
		p.ActorID = entry.ActorID.String()
	}
	value, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload %s: %w", entry.ID, err)
	}
	return value, nil
}

// partitionKey keeps entries for one actor on one partition. Actor-less
// entries (sweep summaries) key by entry ID instead.
func partitionKey(entry *audit.Entry) string {
	if entry.ActorID != nil {
		return entry.ActorID.String()
	}
	return entry.ID.String()
}
