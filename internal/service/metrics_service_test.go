package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceCountsBookingActivity(t *testing.T) {
	m := NewMetricsService()

	m.RecordTransition("confirmed")
	m.RecordTransition("confirmed")
	m.RecordCapacityConflict()
	m.RecordRetry("confirm")
	m.RecordEnrichment("enriched")
	m.RecordOutboxPublished(3)
	m.RecordOutboxPublished(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.transitions.WithLabelValues("confirmed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.capacityConflict))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.txRetries.WithLabelValues("confirm")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.enrichments.WithLabelValues("enriched")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.outboxPublished))
}

func TestMetricsHandlerExposesRegistry(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest(http.MethodPost, "/api/v1/appointments", http.StatusCreated, 20*time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `http_requests_total{method="POST",path="/api/v1/appointments",status="201"} 1`)
}

func TestNilMetricsServiceIsSafe(t *testing.T) {
	var m *MetricsService
	assert.NotPanics(t, func() {
		m.RecordTransition("pending")
		m.RecordCacheOperation(true, time.Millisecond)
		m.ObserveHTTPRequest(http.MethodGet, "/health", http.StatusOK, time.Millisecond)
	})

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
