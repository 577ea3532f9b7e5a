package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "gdpgate/pkg/domain-errors"
	"gdpgate/pkg/requestcontext"
)

func TestWriteError(t *testing.T) {
	t.Run("internal error omits description", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/transactions/validate", nil)
		WriteError(w, r, dErrors.New(dErrors.CodeInternal, "db failed"))

		require.Equal(t, http.StatusInternalServerError, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "INTERNAL_ERROR", body["error"])
		assert.NotContains(t, body, "error_description")
	})

	t.Run("validation error includes description and request id", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/transactions/validate", nil)
		r = r.WithContext(requestcontext.WithRequestID(r.Context(), "req-42"))
		WriteError(w, r, dErrors.New(dErrors.CodeValidation, "quantity must be positive"))

		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "VALIDATION_ERROR", body["error"])
		assert.Equal(t, "quantity must be positive", body["error_description"])
		assert.Equal(t, "req-42", body["request_id"])
	})

	t.Run("uncoded error falls back to internal", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/overrides/abc", nil)
		WriteError(w, r, assert.AnError)

		require.Equal(t, http.StatusInternalServerError, w.Code)
	})
}

func TestWriteDegraded(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/reports/summary", nil)
	WriteDegraded(w, r, 300)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "300", w.Header().Get("Retry-After"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "SERVICE_DEGRADED", body["error"])
}

func TestDecode(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	t.Run("valid body", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme"}`))
		got, ok := Decode[payload](w, r, nil)
		require.True(t, ok)
		assert.Equal(t, "acme", got.Name)
	})

	t.Run("unknown field is a validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"acme","extra":1}`))
		_, ok := Decode[payload](w, r, nil)
		require.False(t, ok)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
		assert.Equal(t, "VALIDATION_ERROR", body["error"])
	})

	t.Run("malformed json is a validation error", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
		_, ok := Decode[payload](w, r, nil)
		require.False(t, ok)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})
}
