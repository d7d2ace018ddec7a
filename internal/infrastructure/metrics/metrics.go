package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Meeting service metrics
var (
	MeetingsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "meetings_created_total",
			Help:      "Total meetings created",
		},
	)

	MeetingsTornDownTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "meetings_torn_down_total",
			Help:      "Total meetings torn down and archived",
		},
	)

	AttendeeJoinsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "attendee_joins_total",
			Help:      "Total successful attendee joins",
		},
	)

	AttendeeLeavesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "attendee_leaves_total",
			Help:      "Total attendee leaves",
		},
	)

	// Live WebSocket connections
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "ws_connections",
			Help:      "Currently open WebSocket connections",
		},
	)

	BroadcastErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "broadcast_errors_total",
			Help:      "Per-connection send failures during count broadcasts",
		},
	)

	// External calls
	GatewayOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "gateway_operations_total",
			Help:      "Conferencing platform API calls",
		},
		[]string{"operation", "status"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "meet",
			Subsystem: "server",
			Name:      "storage_operations_total",
			Help:      "Recording storage API calls",
		},
		[]string{"operation", "status"},
	)
)

// ObserveGatewayOp records one conferencing platform call.
func ObserveGatewayOp(operation string, err error) {
	GatewayOperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

// ObserveStorageOp records one recording storage call.
func ObserveStorageOp(operation string, err error) {
	StorageOperationsTotal.WithLabelValues(operation, statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
