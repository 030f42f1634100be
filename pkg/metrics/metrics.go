// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups HTTP and dispatch-domain collectors.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BookingsCreated    prometheus.Counter
	StatusTransitions  *prometheus.CounterVec
	DestinationsMarked prometheus.Counter
	ResourceSyncs      *prometheus.CounterVec
	SweepActivations   prometheus.Counter
	ScheduleConflicts  *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Bookings created.",
		}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_status_transitions_total",
			Help:      "Booking status transitions by source and target status.",
		}, []string{"from", "to"}),
		DestinationsMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "destinations_delivered_total",
			Help:      "Delivery stops marked delivered.",
		}),
		ResourceSyncs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resource_syncs_total",
			Help:      "Vehicle/crew status synchronisations by target status.",
		}, []string{"status"}),
		SweepActivations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sweep_activations_total",
			Help:      "Bookings activated by the scheduled sweep.",
		}),
		ScheduleConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "schedule_conflicts_total",
			Help:      "Schedule conflicts detected by operation.",
		}, []string{"operation"}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsCreated,
		m.StatusTransitions,
		m.DestinationsMarked,
		m.ResourceSyncs,
		m.SweepActivations,
		m.ScheduleConflicts,
	)
	return m
}

// BookingCreated implements the application's metrics recorder.
func (m *Metrics) BookingCreated() { m.BookingsCreated.Inc() }

// StatusChanged records a booking status transition.
func (m *Metrics) StatusChanged(from, to string) { m.StatusTransitions.WithLabelValues(from, to).Inc() }

// DestinationDelivered records a delivered stop.
func (m *Metrics) DestinationDelivered() { m.DestinationsMarked.Inc() }

// ResourcesSynced records a vehicle/crew status propagation.
func (m *Metrics) ResourcesSynced(status string) { m.ResourceSyncs.WithLabelValues(status).Inc() }

// BookingsActivated records bookings activated by the sweep.
func (m *Metrics) BookingsActivated(n int) { m.SweepActivations.Add(float64(n)) }

// ConflictDetected records a schedule conflict for the given operation.
func (m *Metrics) ConflictDetected(operation string) {
	m.ScheduleConflicts.WithLabelValues(operation).Inc()
}
