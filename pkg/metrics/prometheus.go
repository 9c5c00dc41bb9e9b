// Package metrics provides Prometheus metrics for the cinerank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus metric of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Recommendation metrics
	recommendationRequests *prometheus.CounterVec
	rankingLatency         *prometheus.HistogramVec
	candidatesScored       prometheus.Counter
	recommendationsServed  prometheus.Counter
	unresolvedRatings      prometheus.Counter

	// Rating ingestion metrics
	ratingsAccepted  prometheus.Counter
	ratingsDuplicate prometheus.Counter
	ratingsApplied   prometheus.Counter
	ratingsFailed    prometheus.Counter

	// Catalog metrics
	catalogItems prometheus.Gauge
	catalogUsers prometheus.Gauge
	ratingsTotal prometheus.Gauge
	watchlisted  prometheus.Gauge

	// Store metrics
	storeQueryLatency  *prometheus.HistogramVec
	storeUpdateLatency *prometheus.HistogramVec

	// Queue metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker metrics
	workerCount             prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Error metrics
	errorsByComponent *prometheus.CounterVec
	errorsByType      *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec
	errorLatency      *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cinerank",
		subsystem:        "recommender",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: buckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.recommendationRequests = m.counterVec("recommendation_requests_total",
		"Recommendation requests by kind and outcome", "kind", "outcome")
	m.rankingLatency = m.histogramVec("ranking_latency_milliseconds",
		"Time spent ranking a catalog in milliseconds", "kind")
	m.candidatesScored = m.counter("candidates_scored_total",
		"Catalog items scored across all requests")
	m.recommendationsServed = m.counter("recommendations_served_total",
		"Recommendations returned to callers")
	m.unresolvedRatings = m.counter("unresolved_ratings_total",
		"Ratings that referenced an item missing from the catalog")

	m.ratingsAccepted = m.counter("ratings_accepted_total", "Rating events accepted for processing")
	m.ratingsDuplicate = m.counter("ratings_duplicate_total", "Duplicate rating events rejected")
	m.ratingsApplied = m.counter("ratings_applied_total", "Rating events applied to the store")
	m.ratingsFailed = m.counter("ratings_failed_total", "Rating events that failed to apply")

	m.catalogItems = m.gauge("catalog_items", "Items in the catalog")
	m.catalogUsers = m.gauge("catalog_users", "Users with a stored profile")
	m.ratingsTotal = m.gauge("ratings", "Stored ratings")
	m.watchlisted = m.gauge("watchlist_entries", "Items saved to user watchlists")

	m.storeQueryLatency = m.histogramVec("store_query_latency_milliseconds",
		"Store read latency in milliseconds", "operation")
	m.storeUpdateLatency = m.histogramVec("store_update_latency_milliseconds",
		"Store write latency in milliseconds", "operation")

	m.queueSize = m.gauge("queue_size", "Current size of the rating queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Messages enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Messages dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Enqueue attempts that were rejected")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Enqueue latency in milliseconds", m.histogramBuckets)

	m.workerCount = m.gauge("worker_count", "Rating workers running")
	m.workerMessagesPerSecond = m.gauge("worker_messages_per_second", "Rating events applied per second")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Time to apply one rating event in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Worker processing errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total",
		"Errors by component", "component", "error_type")
	m.errorsByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Recommendation metrics.

// RecordRecommendationRequest counts a request of kind ("profile", "stateless",
// "similar") with outcome ("ok", "invalid", "error").
func RecordRecommendationRequest(kind, outcome string) {
	globalManager.recommendationRequests.WithLabelValues(kind, outcome).Inc()
}

// RecordRankingLatency records ranking latency in milliseconds.
func RecordRankingLatency(kind string, latencyMs float64) {
	globalManager.rankingLatency.WithLabelValues(kind).Observe(latencyMs)
}

// RecordCandidatesScored adds n scored candidates.
func RecordCandidatesScored(n int) {
	globalManager.candidatesScored.Add(float64(n))
}

// RecordRecommendationsServed adds n returned recommendations.
func RecordRecommendationsServed(n int) {
	globalManager.recommendationsServed.Add(float64(n))
}

// RecordUnresolvedRatings adds n ratings that could not be resolved.
func RecordUnresolvedRatings(n int) {
	globalManager.unresolvedRatings.Add(float64(n))
}

// Rating ingestion metrics.

// RecordRatingAccepted increments the accepted ratings counter.
func RecordRatingAccepted() { globalManager.ratingsAccepted.Inc() }

// RecordRatingDuplicate increments the duplicate ratings counter.
func RecordRatingDuplicate() { globalManager.ratingsDuplicate.Inc() }

// RecordRatingApplied increments the applied ratings counter.
func RecordRatingApplied() { globalManager.ratingsApplied.Inc() }

// RecordRatingFailed increments the failed ratings counter.
func RecordRatingFailed() { globalManager.ratingsFailed.Inc() }

// Catalog metrics.

// UpdateCatalogCounts sets catalog size gauges.
func UpdateCatalogCounts(items, users, ratings, watchlist int) {
	globalManager.catalogItems.Set(float64(items))
	globalManager.catalogUsers.Set(float64(users))
	globalManager.ratingsTotal.Set(float64(ratings))
	globalManager.watchlisted.Set(float64(watchlist))
}

// Store metrics.

// RecordStoreQueryLatency records a read of operation in milliseconds.
func RecordStoreQueryLatency(operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordStoreUpdateLatency records a write of operation in milliseconds.
func RecordStoreUpdateLatency(operation string, latencyMs float64) {
	globalManager.storeUpdateLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker metrics.

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerMessagesPerSecond sets the processing rate.
func UpdateWorkerMessagesPerSecond(rate float64) { globalManager.workerMessagesPerSecond.Set(rate) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Error metrics.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorsByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System metrics.

// UpdateSystemMemoryUsage sets heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
