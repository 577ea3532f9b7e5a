package degrade

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gdpgate/pkg/testutil"
)

func publishHealth(h *Health, masterData, erp bool) {
	now := time.Now()
	h.Publish(Snapshot{
		Dependencies: map[Dependency]DependencyStatus{
			DependencyMasterData: {Healthy: masterData, CheckedAt: now},
			DependencyERP:        {Healthy: erp, CheckedAt: now},
			DependencyBlob:       {Healthy: true, CheckedAt: now},
		},
		UpdatedAt: now,
	})
}

func gatedHandler(health *Health) http.Handler {
	gate := NewGate(health, 300)
	return gate.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestGateAdmitsEverythingWhileHealthy(t *testing.T) {
	health := NewHealth()
	handler := gatedHandler(health)

	for _, path := range []string{"/transactions/validate", "/reports/summary", "/health/ready"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, w.Code, path)
	}
}

func TestGateWhileDegraded(t *testing.T) {
	health := NewHealth()
	publishHealth(health, false, true)
	handler := gatedHandler(health)

	t.Run("critical path proceeds", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/transactions/validate", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("deferrable path rejected with retry guidance", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := testutil.WithRequestID(httptest.NewRequest(http.MethodGet, "/reports/summary", nil), "req-1")
		handler.ServeHTTP(w, req)

		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "300", w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), "SERVICE_DEGRADED")
	})

	t.Run("health endpoints stay reachable", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown path treated as critical", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/some/new/endpoint", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestGateRecoversAfterHealthReturns(t *testing.T) {
	health := NewHealth()
	publishHealth(health, false, false)
	handler := gatedHandler(health)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/summary", nil))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)

	publishHealth(health, true, true)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/reports/summary", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCoreHealthy(t *testing.T) {
	health := NewHealth()
	assert.True(t, health.Snapshot().CoreHealthy(), "assumed healthy before first probe")

	publishHealth(health, true, false)
	assert.False(t, health.Snapshot().CoreHealthy())

	// Blob storage going down never degrades core validation.
	now := time.Now()
	health.Publish(Snapshot{
		Dependencies: map[Dependency]DependencyStatus{
			DependencyMasterData: {Healthy: true, CheckedAt: now},
			DependencyERP:        {Healthy: true, CheckedAt: now},
			DependencyBlob:       {Healthy: false, CheckedAt: now},
		},
		UpdatedAt: now,
	})
	assert.True(t, health.Snapshot().CoreHealthy())
}
