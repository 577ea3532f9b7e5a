package degrade

import (
	"log/slog"
	"net/http"

	"gdpgate/internal/degrade/metrics"
	"gdpgate/pkg/platform/httputil"
	"gdpgate/pkg/requestcontext"
)

// Gate decides per request whether to admit, based on path class and the
// current health snapshot. It sits in front of the business handlers.
type Gate struct {
	health            *Health
	retryAfterSeconds int
	logger            *slog.Logger
	metrics           *metrics.Metrics
}

type GateOption func(*Gate)

func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

func WithGateMetrics(m *metrics.Metrics) GateOption {
	return func(g *Gate) { g.metrics = m }
}

func NewGate(health *Health, retryAfterSeconds int, opts ...GateOption) *Gate {
	g := &Gate{
		health:            health,
		retryAfterSeconds: retryAfterSeconds,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware rejects deferrable requests while core dependencies are down.
// Snapshot reads are lock-free so healthy traffic pays near-zero cost.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := Classify(r.URL.Path)
		if class == ClassUngated {
			next.ServeHTTP(w, r)
			return
		}

		if g.health.Snapshot().CoreHealthy() {
			g.metrics.IncrementDecision("admitted")
			next.ServeHTTP(w, r)
			return
		}

		if class == ClassCritical {
			g.metrics.IncrementDecision("admitted_degraded")
			next.ServeHTTP(w, r)
			return
		}

		g.metrics.IncrementDecision("rejected")
		g.logger.InfoContext(r.Context(), "request rejected while degraded",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
		)
		httputil.WriteDegraded(w, r, g.retryAfterSeconds)
	})
}
