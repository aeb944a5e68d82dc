// README: Prometheus collectors for HTTP traffic and the booking workflow.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "bantu"

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	BookingsStarted  = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "bookings_started_total", Help: "Booking sessions opened"})
	BookingsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "bookings_finished_total", Help: "Booking sessions that reached a terminal state"},
		[]string{"outcome"},
	)
	StepTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_step_transitions_total", Help: "Advance attempts by source step and result"},
		[]string{"step", "result"},
	)
	RideCreateLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ride_create_latency_seconds",
		Help:      "Latency of ride creation when leaving the location step",
		Buckets:   prometheus.DefBuckets,
	})
	BookingWarnings = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "booking_warnings_total", Help: "Non-fatal side-effect failures surfaced at finalize"},
		[]string{"kind"},
	)
	DriverLocationUpdates = promauto.NewCounter(prometheus.CounterOpts{Namespace: namespace, Name: "driver_location_updates_total", Help: "Driver location updates accepted"})
)
