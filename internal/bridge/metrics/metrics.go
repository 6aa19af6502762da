package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification bridge.
type Metrics struct {
	// Issuance requests by outcome
	Issuances *prometheus.CounterVec

	// Verification requests by outcome
	Verifications *prometheus.CounterVec

	// Circuit breaker state (0 closed, 1 open)
	BreakerOpen prometheus.Gauge

	// Registry call latency by operation
	RegistryLatency *prometheus.HistogramVec
}

// New creates a Metrics instance with all bridge metrics registered.
func New() *Metrics {
	return &Metrics{
		Issuances: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_bridge_issuances_total",
			Help: "Total issuance requests by outcome",
		}, []string{"outcome"}), // outcome: "created", "exists", "fallback", "rejected"

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "attestor_bridge_verifications_total",
			Help: "Total verification requests by outcome",
		}, []string{"outcome"}), // outcome: "valid", "invalid", "fallback"

		BreakerOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "attestor_bridge_breaker_open",
			Help: "Whether the registry circuit breaker is open",
		}),

		RegistryLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attestor_bridge_registry_call_duration_seconds",
			Help:    "Duration of registry calls",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"op"}),
	}
}

// IncrementIssuance records an issuance outcome.
func (m *Metrics) IncrementIssuance(outcome string) {
	if m != nil {
		m.Issuances.WithLabelValues(outcome).Inc()
	}
}

// IncrementVerification records a verification outcome.
func (m *Metrics) IncrementVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}

// SetBreakerOpen mirrors the breaker state.
func (m *Metrics) SetBreakerOpen(open bool) {
	if m != nil {
		v := 0.0
		if open {
			v = 1.0
		}
		m.BreakerOpen.Set(v)
	}
}

// ObserveRegistryCall records the duration of a registry call.
func (m *Metrics) ObserveRegistryCall(op string, d time.Duration) {
	if m != nil {
		m.RegistryLatency.WithLabelValues(op).Observe(d.Seconds())
	}
}
