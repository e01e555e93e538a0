package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebSocket metrics
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "canvasflow_ws_active_connections",
			Help: "Currently registered WebSocket connections",
		},
	)

	EventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasflow_ws_events_total",
			Help: "Inbound WebSocket events by type",
		},
		[]string{"type"},
	)

	BroadcastsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "canvasflow_ws_broadcasts_total",
			Help: "Messages fanned out to room members",
		},
	)

	ShapeWriteFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasflow_shape_write_failures_total",
			Help: "Best-effort shape persistence failures by operation",
		},
		[]string{"op"}, // "create", "update" or "delete"
	)

	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "canvasflow_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "canvasflow_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	UsersRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "canvasflow_users_registered_total",
			Help: "Total users registered",
		},
	)

	RoomsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "canvasflow_rooms_created_total",
			Help: "Total rooms created",
		},
	)
)
