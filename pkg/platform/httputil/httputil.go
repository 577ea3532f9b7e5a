// Package httputil centralizes JSON encoding and error translation for the
// HTTP layer so every handler produces the same envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/requestcontext"
)

// ErrorResponse is the stable JSON error envelope. Description is omitted for
// internal errors so defect detail never leaks to external callers.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

// WriteJSON writes v with the given status and a JSON content type.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded error into the JSON envelope. Uncoded errors
// surface as INTERNAL_ERROR with no description.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{
		Error:     string(code),
		RequestID: requestcontext.RequestID(r.Context()),
	}
	if code != dErrors.CodeInternal {
		var de *dErrors.Error
		if errors.As(err, &de) {
			resp.Description = de.Message
		}
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), resp)
}

// WriteDegraded writes the SERVICE_DEGRADED envelope with a Retry-After hint.
func WriteDegraded(w http.ResponseWriter, r *http.Request, retryAfterSeconds int) {
	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSeconds))
	WriteJSON(w, http.StatusServiceUnavailable, ErrorResponse{
		Error:       string(dErrors.CodeServiceDegraded),
		Description: "core services are degraded, retry later",
		RequestID:   requestcontext.RequestID(r.Context()),
	})
}

// Decode parses a JSON request body into T, translating failures into a
// VALIDATION_ERROR response. Returns false when the response was already
// written.
func Decode[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (T, bool) {
	var v T
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if logger != nil {
			logger.WarnContext(r.Context(), "malformed request body",
				"request_id", requestcontext.RequestID(r.Context()),
				"error", err,
			)
		}
		WriteError(w, r, dErrors.New(dErrors.CodeValidation, "malformed JSON request body"))
		return v, false
	}
	return v, true
}
