package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Denied prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Denied: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "gdpgate",
			Subsystem: "ratelimit",
			Name:      "denied_total",
			Help:      "Requests rejected by admission rate limiting.",
		}),
	}
}

func (m *Metrics) IncrementDenied() {
	if m == nil {
		return
	}
	m.Denied.Inc()
}
