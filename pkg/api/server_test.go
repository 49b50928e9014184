package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SwapHiremath/subscription-billing-simulator/pkg/annotation"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/billing"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/observability"
	"github.com/SwapHiremath/subscription-billing-simulator/pkg/subscription"
)

func TestServer_OperationalEndpoints(t *testing.T) {
	store := subscription.NewMemoryStore()
	service := subscription.NewService(store, &annotation.StaticProvider{}, nil, nil)
	handlers := NewSubscriptionHandlers(service, billing.NewLedger(nil), nil)

	metrics := observability.NewMetrics(prometheus.NewRegistry())
	server := NewServer(handlers, ServerOptions{
		Metrics:       metrics,
		HealthChecker: observability.NewHealthChecker(nil, nil),
	})

	t.Run("liveness", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("readiness with no dependencies", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("metrics exposition", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "billing_")
	})

	t.Run("request ID header set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/subscriptions", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("request ID header preserved", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/subscriptions", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})

	t.Run("unknown route is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
