package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the retention module.
// Tracks scheduled and executed deletions, erasure failures, and sweep
// timing so stuck pending rows show up on a dashboard instead of in a
// complaint.
type Metrics struct {
	DeletionsScheduled prometheus.Counter
	DeletionsImmediate prometheus.Counter
	DeletionsExecuted  prometheus.Counter
	DeletionFailures   prometheus.Counter
	SweepRuns          prometheus.Counter
	SweepDuration      prometheus.Histogram
}

// New creates a new Metrics instance with all retention module metrics registered.
func New() *Metrics {
	return &Metrics{
		DeletionsScheduled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_retention_deletions_scheduled_total",
			Help: "Total number of deletions deferred to the end of a retention window",
		}),
		DeletionsImmediate: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_retention_deletions_immediate_total",
			Help: "Total number of accounts erased immediately on request",
		}),
		DeletionsExecuted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_retention_deletions_executed_total",
			Help: "Total number of accounts erased by the scheduled sweep",
		}),
		DeletionFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_retention_deletion_failures_total",
			Help: "Total number of erasure attempts that failed and were left pending",
		}),
		SweepRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_retention_sweep_runs_total",
			Help: "Total number of sweep executions, manual and scheduled",
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "compass_retention_sweep_duration_seconds",
			Help:    "Wall-clock duration of sweep executions",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}
}

// IncrementScheduled records a deletion deferred behind a retention window.
func (m *Metrics) IncrementScheduled() {
	m.DeletionsScheduled.Inc()
}

// IncrementImmediate records an account erased at request time.
func (m *Metrics) IncrementImmediate() {
	m.DeletionsImmediate.Inc()
}

// AddExecuted records accounts erased by one sweep.
func (m *Metrics) AddExecuted(n int) {
	m.DeletionsExecuted.Add(float64(n))
}

// AddFailures records erasure attempts that failed during one sweep.
func (m *Metrics) AddFailures(n int) {
	m.DeletionFailures.Add(float64(n))
}

// ObserveSweep records one completed sweep and its duration.
func (m *Metrics) ObserveSweep(d time.Duration) {
	m.SweepRuns.Inc()
	m.SweepDuration.Observe(d.Seconds())
}
