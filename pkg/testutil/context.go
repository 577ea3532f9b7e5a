package testutil

import (
	"context"
	"net/http"
	"time"

	"gdpgate/pkg/requestcontext"
)

// WithActor attaches an acting identity to the request context, simulating
// what the auth middleware does for authenticated requests.
func WithActor(req *http.Request, actorID, role string) *http.Request {
	ctx := requestcontext.WithActorID(req.Context(), actorID)
	ctx = requestcontext.WithActorRole(ctx, role)
	return req.WithContext(ctx)
}

// WithRequestID attaches a correlation identifier to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// WithTime pins the request-scoped clock so assertions on timestamps are
// deterministic.
func WithTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// ActorContext builds a plain context carrying an acting identity and a
// fixed time, for service-level tests that skip the HTTP layer.
func ActorContext(actorID, role string, now time.Time) context.Context {
	ctx := requestcontext.WithActorID(context.Background(), actorID)
	ctx = requestcontext.WithActorRole(ctx, role)
	return requestcontext.WithTime(ctx, now)
}
