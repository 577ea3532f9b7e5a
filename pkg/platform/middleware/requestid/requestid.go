// Package requestid assigns a correlation identifier to every request.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"gdpgate/pkg/requestcontext"
)

// Header is the inbound/outbound correlation header.
const Header = "X-Request-ID"

// Middleware reuses the caller's request ID when present so correlation
// spans service boundaries, generating one otherwise. The ID is echoed on
// the response and attached to the context for logging and error bodies.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(Header)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(Header, requestID)
		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
