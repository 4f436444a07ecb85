package observe

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dbgateway"

var (
	ConnectionsOpened = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_opened_total",
		Help:      "Backend connections opened.",
	}, []string{"backend"})

	ConnectionsReused = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_reused_total",
		Help:      "Acquisitions served from the registry without a new connection.",
	}, []string{"backend"})

	ConnectionsClosed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connections_closed_total",
		Help:      "Backend connections closed, by reason.",
	}, []string{"backend", "reason"})

	ConnectionErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "connection_errors_total",
		Help:      "Failed connection attempts and failed closes.",
	}, []string{"backend", "stage"})

	ActiveConnections = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_connections",
		Help:      "Connections currently held in the registry.",
	}, []string{"backend"})

	Queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "queries_total",
		Help:      "Executed queries and document operations, by result kind.",
	}, []string{"backend", "result"})

	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "query_duration_seconds",
		Help:      "Time spent executing a query or document operation.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"backend"})
)

// Register must be called once from main.
func Register() {
	prometheus.MustRegister(
		ConnectionsOpened,
		ConnectionsReused,
		ConnectionsClosed,
		ConnectionErrors,
		ActiveConnections,
		Queries,
		QueryDuration,
	)
}

// Handler returns the HTTP handler exposing the registered metrics.
func Handler() http.Handler { return promhttp.Handler() }
