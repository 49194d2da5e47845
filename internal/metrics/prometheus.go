package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics wraps prometheus collectors for Inkwell metrics
type PrometheusMetrics struct {
	registry *prometheus.Registry

	// Counters
	commentCacheRequests *prometheus.CounterVec
	commentCacheLoads    prometheus.Counter
	storeOperations      *prometheus.CounterVec
	consistencyFaults    *prometheus.CounterVec
	searchRequests       prometheus.Counter

	// Histograms
	storeDuration *prometheus.HistogramVec
	searchMatches prometheus.Histogram

	// Gauges
	uptime           prometheus.GaugeFunc
	postCacheEntries prometheus.Gauge
}

// Default histogram buckets for store operation duration (in milliseconds)
var defaultBuckets = []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000}

var matchBuckets = prometheus.ExponentialBuckets(1, 4, 8)

var promMetrics *PrometheusMetrics

// InitPrometheus initializes the Prometheus metrics subsystem
func InitPrometheus(namespace string, buckets []float64) {
	if len(buckets) == 0 {
		buckets = defaultBuckets
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	pm := &PrometheusMetrics{
		registry: registry,

		commentCacheRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comment_cache_requests_total",
				Help:      "Comment cache reads by result (hit or miss)",
			},
			[]string{"result"},
		),

		commentCacheLoads: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "comment_cache_loads_total",
				Help:      "Comment sequences loaded from the store",
			},
		),

		storeOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "store_operations_total",
				Help:      "Entity store operations by operation and status",
			},
			[]string{"op", "status"},
		),

		consistencyFaults: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consistency_faults_total",
				Help:      "Detected divergences between the caches and the store",
			},
			[]string{"op"},
		),

		searchRequests: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Post searches served from the cache",
			},
		),

		storeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "store_operation_duration_milliseconds",
				Help:      "Duration of entity store operations in milliseconds",
				Buckets:   buckets,
			},
			[]string{"op"},
		),

		searchMatches: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_matches",
				Help:      "Number of posts matched per search",
				Buckets:   matchBuckets,
			},
		),

		postCacheEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "post_cache_entries",
				Help:      "Posts currently held in the post cache",
			},
		),
	}

	pm.uptime = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Time since the process started",
		},
		func() float64 {
			return time.Since(StartTime()).Seconds()
		},
	)

	registry.MustRegister(
		pm.commentCacheRequests,
		pm.commentCacheLoads,
		pm.storeOperations,
		pm.consistencyFaults,
		pm.searchRequests,
		pm.storeDuration,
		pm.searchMatches,
		pm.uptime,
		pm.postCacheEntries,
	)

	promMetrics = pm
}

// RecordCommentCacheRequest counts a comment cache read. result is "hit" or
// "miss".
func RecordCommentCacheRequest(result string) {
	if result == "hit" {
		global.CommentCacheHits.Add(1)
	} else {
		global.CommentCacheMiss.Add(1)
	}
	if promMetrics == nil {
		return
	}
	promMetrics.commentCacheRequests.WithLabelValues(result).Inc()
}

// RecordCommentCacheLoad counts a comment sequence loaded from the store
func RecordCommentCacheLoad() {
	global.CommentCacheLoads.Add(1)
	if promMetrics == nil {
		return
	}
	promMetrics.commentCacheLoads.Inc()
}

// RecordStoreOperation records one entity store call and its outcome
func RecordStoreOperation(op string, d time.Duration, err error) {
	global.recordStore(op, d, err != nil)
	if promMetrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failed"
	}
	promMetrics.storeOperations.WithLabelValues(op, status).Inc()
	promMetrics.storeDuration.WithLabelValues(op).Observe(float64(d.Microseconds()) / 1000)
}

// RecordConsistencyFault counts a detected cache/store divergence
func RecordConsistencyFault(op string) {
	global.ConsistencyFaults.Add(1)
	if promMetrics == nil {
		return
	}
	promMetrics.consistencyFaults.WithLabelValues(op).Inc()
}

// RecordSearch records a search and its match count
func RecordSearch(matches int) {
	global.Searches.Add(1)
	if promMetrics == nil {
		return
	}
	promMetrics.searchRequests.Inc()
	promMetrics.searchMatches.Observe(float64(matches))
}

// SetPostCacheEntries sets the post cache size gauge
func SetPostCacheEntries(n int) {
	if promMetrics == nil {
		return
	}
	promMetrics.postCacheEntries.Set(float64(n))
}

// PrometheusHandler returns an HTTP handler for Prometheus metrics scraping
func PrometheusHandler() http.Handler {
	if promMetrics == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("prometheus metrics not initialized"))
		})
	}
	return promhttp.HandlerFor(promMetrics.registry, promhttp.HandlerOpts{})
}
