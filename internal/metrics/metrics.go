// Package metrics holds the Prometheus collectors of the booking service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
	OutcomeError   = "error"
	OutcomeOK      = "ok"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records
// nothing, which keeps tests and tools free of registry plumbing.
type Metrics struct {
	AuthzDecisionsTotal      *prometheus.CounterVec
	AggregateOperationsTotal *prometheus.CounterVec
	StoreErrorsTotal         *prometheus.CounterVec

	registry *prometheus.Registry
}

// New creates and registers the collectors on registry.
func New(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		AuthzDecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_authz_decisions_total",
				Help: "Authorization gate decisions by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		AggregateOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_aggregate_operations_total",
				Help: "Aggregate operations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),
		StoreErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_store_errors_total",
				Help: "Store failures surfaced by the service layer",
			},
			[]string{"operation"},
		),
		registry: registry,
	}
	registry.MustRegister(m.AuthzDecisionsTotal, m.AggregateOperationsTotal, m.StoreErrorsTotal)
	return m
}

// AuthzDecision counts one gate decision.
func (m *Metrics) AuthzDecision(operation string, allowed bool) {
	if m == nil {
		return
	}
	outcome := OutcomeDenied
	if allowed {
		outcome = OutcomeAllowed
	}
	m.AuthzDecisionsTotal.WithLabelValues(operation, outcome).Inc()
}

// Operation counts one aggregate operation.
func (m *Metrics) Operation(operation, outcome string) {
	if m == nil {
		return
	}
	m.AggregateOperationsTotal.WithLabelValues(operation, outcome).Inc()
}

// StoreError counts one store failure.
func (m *Metrics) StoreError(operation string) {
	if m == nil {
		return
	}
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
