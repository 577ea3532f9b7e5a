package degrade

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"gdpgate/pkg/platform/httputil"
)

// Handler serves liveness and readiness over the health snapshot.
type Handler struct {
	health *Health
}

func NewHandler(health *Health) *Handler {
	return &Handler{health: health}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health/live", h.HandleLiveness)
	r.Get("/health/ready", h.HandleReadiness)
}

type dependencyReport struct {
	Healthy     bool   `json:"healthy"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
	CheckedAt   string `json:"checked_at"`
}

type healthReport struct {
	Status       string                      `json:"status"`
	UpdatedAt    string                      `json:"updated_at"`
	Dependencies map[string]dependencyReport `json:"dependencies"`
}

// HandleLiveness answers 200 while the process runs.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HandleReadiness reports per-dependency probe results. A degraded core
// answers 503 so orchestration stops routing new traffic here.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	snapshot := h.health.Snapshot()

	report := healthReport{
		Status:       "ready",
		UpdatedAt:    snapshot.UpdatedAt.Format(time.RFC3339),
		Dependencies: make(map[string]dependencyReport, len(snapshot.Dependencies)),
	}
	for dep, status := range snapshot.Dependencies {
		report.Dependencies[string(dep)] = dependencyReport{
			Healthy:     status.Healthy,
			Duration:    status.Duration.String(),
			Description: status.Description,
			CheckedAt:   status.CheckedAt.Format(time.RFC3339),
		}
	}

	code := http.StatusOK
	if !snapshot.CoreHealthy() {
		report.Status = "degraded"
		code = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, report)
}
