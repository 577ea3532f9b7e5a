package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks gate decisions and dependency probe outcomes.
type Metrics struct {
	Decisions   *prometheus.CounterVec
	ProbeHealth *prometheus.GaugeVec
	ProbeTime   *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gdpgate",
			Subsystem: "degrade",
			Name:      "gate_decisions_total",
			Help:      "Admission decisions made by the degradation gate.",
		}, []string{"decision"}),
		ProbeHealth: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "gdpgate",
			Subsystem: "degrade",
			Name:      "dependency_healthy",
			Help:      "Whether the last probe of a dependency succeeded (1) or failed (0).",
		}, []string{"dependency"}),
		ProbeTime: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "gdpgate",
			Subsystem: "degrade",
			Name:      "probe_duration_seconds",
			Help:      "Time spent probing a dependency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"dependency"}),
	}
}

func (m *Metrics) IncrementDecision(decision string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(decision).Inc()
}

func (m *Metrics) ObserveProbe(dependency string, healthy bool, elapsed time.Duration) {
	if m == nil {
		return
	}
	value := 0.0
	if healthy {
		value = 1.0
	}
	m.ProbeHealth.WithLabelValues(dependency).Set(value)
	m.ProbeTime.WithLabelValues(dependency).Observe(elapsed.Seconds())
}
