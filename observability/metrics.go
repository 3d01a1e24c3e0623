// Package observability exposes prometheus metrics for the bus and the
// HTTP surface.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Bus metrics
	MessagesSubmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backchannel_messages_submitted_total",
			Help: "Total messages submitted for moderation",
		},
	)

	MessagesApproved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backchannel_messages_approved_total",
			Help: "Total messages approved and broadcast",
		},
	)

	MessagesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backchannel_messages_rejected_total",
			Help: "Total messages rejected and deleted",
		},
	)

	BusErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backchannel_bus_errors_total",
			Help: "Total error events emitted by the bus",
		},
		[]string{"code"},
	)

	// Connection metrics
	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "backchannel_live_connections",
			Help: "Currently open websocket connections",
		},
	)

	DroppedDeliveries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "backchannel_dropped_deliveries_total",
			Help: "Broadcasts dropped because a connection buffer was full",
		},
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "backchannel_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "backchannel_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)
)
