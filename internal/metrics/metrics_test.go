package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCounters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.AuthzDecision("update_booking", true)
	m.AuthzDecision("update_booking", false)
	m.AuthzDecision("update_booking", false)
	m.Operation("create_booking", OutcomeOK)
	m.StoreError("delete_booking")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("update_booking", OutcomeAllowed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.AuthzDecisionsTotal.WithLabelValues("update_booking", OutcomeDenied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AggregateOperationsTotal.WithLabelValues("create_booking", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoreErrorsTotal.WithLabelValues("delete_booking")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.AuthzDecision("x", true)
		m.Operation("x", OutcomeOK)
		m.StoreError("x")
	})
}

func TestHandlerExposesRegistry(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.Operation("create_booking", OutcomeOK)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `booking_aggregate_operations_total{operation="create_booking",outcome="ok"} 1`)
}
