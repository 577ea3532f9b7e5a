// Package httptransport composes the public HTTP surface: middleware chain,
// health endpoints, and the validation and override APIs.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gdpgate/internal/degrade"
	overridehandler "gdpgate/internal/override/handler"
	"gdpgate/internal/ratelimit"
	validationhandler "gdpgate/internal/validation/handler"
	"gdpgate/pkg/platform/middleware/auth"
	"gdpgate/pkg/platform/middleware/requestid"
	"gdpgate/pkg/platform/middleware/requesttime"
)

// Deps carries everything the router mounts.
type Deps struct {
	Validation *validationhandler.Handler
	Override   *overridehandler.Handler
	Health     *degrade.Handler
	Gate       *degrade.Gate
	RateLimit  *ratelimit.Middleware
	Auth       auth.TokenValidator
	Logger     *slog.Logger
}

// NewRouter wires the middleware chain and all endpoints. Order matters:
// request identity and time come first so every later layer logs and stamps
// consistently, the rate limiter runs before the degradation gate so abusive
// traffic never reaches health-dependent logic, and authentication applies
// only to route groups that need an actor.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(deps.RateLimit.Handler)
	r.Use(deps.Gate.Middleware)

	deps.Health.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Validation accepts integration traffic authenticated at the network
	// edge; identity is attached when a token is present.
	r.Group(func(r chi.Router) {
		r.Use(auth.Optional(deps.Auth, deps.Logger))
		deps.Validation.Register(r)
	})

	// Override decisions always need an authenticated actor.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(deps.Auth, deps.Logger))
		deps.Override.Register(r)
	})

	return r
}
