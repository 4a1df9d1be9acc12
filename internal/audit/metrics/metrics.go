package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit module.
// Tracks ledger writes, write failures, and outbox relay throughput.
type Metrics struct {
	EntriesRecorded prometheus.Counter
	RecordFailures  prometheus.Counter
	RelayPublished  prometheus.Counter
	RelayFailures   prometheus.Counter
}

// New creates a new Metrics instance with all audit module metrics registered.
func New() *Metrics {
	return &Metrics{
		EntriesRecorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_audit_entries_recorded_total",
			Help: "Total number of audit entries written to the ledger",
		}),
		RecordFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_audit_record_failures_total",
			Help: "Total number of audit writes that failed and were dropped",
		}),
		RelayPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_audit_relay_published_total",
			Help: "Total number of audit entries relayed to Kafka",
		}),
		RelayFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "compass_audit_relay_failures_total",
			Help: "Total number of relay batches that failed to publish",
		}),
	}
}

// IncrementRecorded records a successful ledger append.
func (m *Metrics) IncrementRecorded() {
	m.EntriesRecorded.Inc()
}

// IncrementRecordFailure records a dropped audit write.
func (m *Metrics) IncrementRecordFailure() {
	m.RecordFailures.Inc()
}

// AddRelayPublished records entries shipped in one relay batch.
func (m *Metrics) AddRelayPublished(n int) {
	m.RelayPublished.Add(float64(n))
}

// IncrementRelayFailure records a relay batch that could not publish.
func (m *Metrics) IncrementRelayFailure() {
	m.RelayFailures.Inc()
}
