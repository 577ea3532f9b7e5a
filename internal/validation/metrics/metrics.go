package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the validation engine.
type Metrics struct {
	Verdicts        *prometheus.CounterVec
	Violations      *prometheus.CounterVec
	ValidateLatency prometheus.Histogram
}

// New creates and registers validation metrics.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gdpgate_validation_verdicts_total",
			Help: "Validation verdicts by status",
		}, []string{"status"}),

		Violations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gdpgate_validation_violations_total",
			Help: "Rule violations by code",
		}, []string{"code"}),

		ValidateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "gdpgate_validation_duration_seconds",
			Help:    "Duration of full transaction validation including rule lookups",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncrementVerdict records a verdict outcome.
func (m *Metrics) IncrementVerdict(status string) {
	if m != nil {
		m.Verdicts.WithLabelValues(status).Inc()
	}
}

// IncrementViolation records one violated rule.
func (m *Metrics) IncrementViolation(code string) {
	if m != nil {
		m.Violations.WithLabelValues(code).Inc()
	}
}

// ObserveValidateLatency records the total validation duration.
func (m *Metrics) ObserveValidateLatency(d time.Duration) {
	if m != nil {
		m.ValidateLatency.Observe(d.Seconds())
	}
}
