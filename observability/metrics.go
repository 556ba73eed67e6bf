package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_connections_active",
		Help: "Connections currently registered with the coordinator.",
	})
	Rooms = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_rooms",
		Help: "Rooms currently held by the registry.",
	})
	DeliveredEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_events_delivered_total",
		Help: "Events enqueued to a connection, by event name.",
	}, []string{"event"})
	DroppedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_events_dropped_total",
		Help: "Events dropped because a connection buffer was full, by event name.",
	}, []string{"event"})
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_executions_total",
		Help: "Sandbox executions by language and result status.",
	}, []string{"language", "status"})
	ExecutionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "collab_execution_duration_seconds",
		Help:    "Wall clock duration of sandbox executions.",
		Buckets: prometheus.DefBuckets,
	}, []string{"language"})
	RunningSandboxes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "collab_sandboxes_running",
		Help: "Sandbox processes currently alive.",
	})
	WorkerRestarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collab_worker_restarts_total",
		Help: "Supervised worker restarts after a panic or an error.",
	}, []string{"worker"})
)

// Handler exposes Prometheus metrics at /metrics
func Handler() http.Handler {
	return promhttp.Handler()
}
