package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the override workflow.
type Metrics struct {
	Transitions *prometheus.CounterVec
	Pending     prometheus.Gauge
}

// New creates and registers override workflow metrics.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gdpgate_override_transitions_total",
			Help: "Override request transitions by resulting state",
		}, []string{"state"}),

		Pending: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gdpgate_override_pending",
			Help: "Override requests currently pending",
		}),
	}
}

// IncrementTransition records a transition to the given state.
func (m *Metrics) IncrementTransition(state string) {
	if m != nil {
		m.Transitions.WithLabelValues(state).Inc()
	}
}

// PendingDelta adjusts the pending gauge.
func (m *Metrics) PendingDelta(delta float64) {
	if m != nil {
		m.Pending.Add(delta)
	}
}
