package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus collectors for the dashboard. Registered on the default
// registry and exposed through promhttp on /metrics.
var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnemoscope_http_request_duration_seconds",
		Help:    "HTTP request latency by path.",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	queryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnemoscope_query_duration_seconds",
		Help:    "Database query latency by operation.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	layoutDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mnemoscope_layout_duration_seconds",
		Help:    "Graph layout computation latency by method.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
	}, []string{"method"})

	layoutFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemoscope_layout_fallbacks_total",
		Help: "Renders that fell back to the force-directed layout.",
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemoscope_cache_hits_total",
		Help: "Query cache hits.",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mnemoscope_cache_misses_total",
		Help: "Query cache misses.",
	})

	sseClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mnemoscope_sse_clients",
		Help: "Currently connected event stream clients.",
	})
)

// ObserveRequest records the latency of one HTTP request.
func ObserveRequest(path string, d time.Duration) {
	requestDuration.WithLabelValues(path).Observe(d.Seconds())
}

// ObserveQuery records the latency of one database operation.
func ObserveQuery(operation string, d time.Duration) {
	queryDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// ObserveLayout records a completed layout with its method. Spring
// layouts count as fallbacks.
func ObserveLayout(method string, d time.Duration) {
	layoutDuration.WithLabelValues(method).Observe(d.Seconds())
	if method == "spring" {
		layoutFallbacks.Inc()
	}
}

// CacheHit and CacheMiss feed the cache counters.
func CacheHit()  { cacheHits.Inc() }
func CacheMiss() { cacheMisses.Inc() }

// SSEConnected and SSEDisconnected track event stream clients.
func SSEConnected()    { sseClients.Inc() }
func SSEDisconnected() { sseClients.Dec() }
