package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the registry ledger.
type Metrics struct {
	// Mutations by operation and outcome
	Mutations *prometheus.CounterVec

	// Verification queries by validity
	Verifications *prometheus.CounterVec

	// Current counters mirrored from ledger globals
	ActiveIdentities prometheus.Gauge
	TotalIdentities  prometheus.Gauge

	// Journal append latency
	JournalAppendLatency prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_registry_mutations_total",
			Help: "Total ledger mutations by operation and outcome",
		}, []string{"op", "outcome"}), // op: "create", "update_status", "renew", "batch_create", "set_authority", "pause"

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_registry_verifications_total",
			Help: "Total verification queries by result",
		}, []string{"valid"}),

		ActiveIdentities: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attestor_registry_active_identities",
			Help: "Number of identity records with stored status Active",
		}),

		TotalIdentities: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attestor_registry_identities",
			Help: "Total number of identity records on the ledger",
		}),

		JournalAppendLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_registry_journal_append_duration_seconds",
			Help:    "Duration of journal appends",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
	}
}

// IncrementMutation records a mutation attempt outcome.
func (m *Metrics) IncrementMutation(op, outcome string) {
	if m != nil {
		m.Mutations.WithLabelValues(op, outcome).Inc()
	}
}

// IncrementVerification records a verification query result.
func (m *Metrics) IncrementVerification(valid bool) {
	if m != nil {
		label := "false"
		if valid {
			label = "true"
		}
		m.Verifications.WithLabelValues(label).Inc()
	}
}

// SetCounters mirrors the ledger's total and active counters.
func (m *Metrics) SetCounters(total, active uint64) {
	if m != nil {
		m.TotalIdentities.Set(float64(total))
		m.ActiveIdentities.Set(float64(active))
	}
}

// ObserveJournalAppend records the duration of a journal append.
func (m *Metrics) ObserveJournalAppend(d time.Duration) {
	if m != nil {
		m.JournalAppendLatency.Observe(d.Seconds())
	}
}
