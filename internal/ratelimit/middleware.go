package ratelimit

import (
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"

	"gdpgate/internal/ratelimit/bucket"
	"gdpgate/internal/ratelimit/metrics"
	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/platform/httputil"
	"gdpgate/pkg/requestcontext"
)

// Middleware applies the limiter to every request except health and metrics
// endpoints.
type Middleware struct {
	limiter  *Limiter
	disabled bool
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Middleware)

// WithDisabled turns the middleware into a pass-through.
func WithDisabled(disabled bool) Option {
	return func(m *Middleware) { m.disabled = disabled }
}

func WithMetrics(mx *metrics.Metrics) Option {
	return func(m *Middleware) { m.metrics = mx }
}

func New(limiter *Limiter, logger *slog.Logger, opts ...Option) *Middleware {
	m := &Middleware{limiter: limiter, logger: logger}
	for _, opt := range opts {
		opt(m)
	}
	if m.disabled {
		logger.Info("rate limiting disabled")
	}
	return m
}

var exemptPaths = map[string]struct{}{
	"/health/live":  {},
	"/health/ready": {},
	"/metrics":      {},
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.disabled {
			next.ServeHTTP(w, r)
			return
		}
		if _, exempt := exemptPaths[r.URL.Path]; exempt {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		ip := clientIP(r)

		result, degraded, err := m.limiter.Check(ctx, "ip:"+ip)
		if err != nil {
			// An unusable limiter must not take the validation path down
			// with it.
			m.logger.ErrorContext(ctx, "rate limit check failed, admitting request",
				"request_id", requestcontext.RequestID(ctx),
				"error", err,
			)
			next.ServeHTTP(w, r)
			return
		}

		addHeaders(w, result, degraded)

		if !result.Allowed {
			m.metrics.IncrementDenied()
			retryAfter := result.RetryAfterSeconds(requestcontext.Now(ctx))
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			httputil.WriteError(w, r, dErrors.New(dErrors.CodeRateLimited, "too many requests, retry later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func addHeaders(w http.ResponseWriter, result bucket.Result, degraded bool) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
	if degraded {
		w.Header().Set("X-RateLimit-Status", "degraded")
	}
}

// clientIP prefers the first X-Forwarded-For hop, falling back to the
// connection peer.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		parts := strings.Split(forwarded, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
