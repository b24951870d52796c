// Package metrics defines the Prometheus collectors of the meal service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meals"

// Metrics groups the collectors registered for one process.
type Metrics struct {
	ActionsTotal       *prometheus.CounterVec
	RejectionsTotal    *prometheus.CounterVec
	StoreErrorsTotal   *prometheus.CounterVec
	RegistrationsTotal prometheus.Counter
	RequestDuration    *prometheus.HistogramVec
}

// New registers every collector with the given registerer.
func New(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ActionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_recorded_total",
			Help:      "Meal actions accepted into the action log.",
		}, []string{"meal", "action"}),
		RejectionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_rejected_total",
			Help:      "Meal actions refused by the schedule.",
		}, []string{"reason"}),
		StoreErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_errors_total",
			Help:      "Failed reads and writes against the backing store.",
		}, []string{"operation"}),
		RegistrationsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "People registered.",
		}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route and status.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route", "status"}),
	}
}

// ObserveAction counts an accepted action. Late tokens are folded into one label value.
func (m *Metrics) ObserveAction(meal, action string) {
	if len(action) > 5 && action[:5] == "LATE_" {
		action = "LATE"
	}
	m.ActionsTotal.WithLabelValues(meal, action).Inc()
}

// ObserveRejection counts an action refused for reason.
func (m *Metrics) ObserveRejection(reason string) {
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveStoreError counts a failed store operation.
func (m *Metrics) ObserveStoreError(operation string) {
	m.StoreErrorsTotal.WithLabelValues(operation).Inc()
}

// ObserveRegistration counts a new person.
func (m *Metrics) ObserveRegistration() {
	m.RegistrationsTotal.Inc()
}

// ObserveRequest records the latency of an HTTP request that started at start.
func (m *Metrics) ObserveRequest(route, status string, start time.Time) {
	m.RequestDuration.WithLabelValues(route, status).Observe(time.Since(start).Seconds())
}
