// Package metrics provides Prometheus metrics for the fitmeasure service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the fitmeasure service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Measurement Metrics
	jobs                  *prometheus.CounterVec
	jobLatency            *prometheus.HistogramVec
	detectionLatency      prometheus.Histogram
	scaleFallbacks        *prometheus.CounterVec
	estimatedSizes        *prometheus.CounterVec
	measurementConfidence *prometheus.HistogramVec

	// Cache Metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	cacheErrors prometheus.Counter

	// Job Store Metrics
	jobStoreSize      prometheus.Gauge
	jobStoreEvictions prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	rateLimited         *prometheus.CounterVec

	// Queue Metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerActiveCount       prometheus.Gauge
	workerBusyCount         prometheus.Gauge
	workerMessagesPerSecond prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter
	workerPanics            prometheus.Counter

	// Error Metrics
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// latencyBuckets cover a fast cache hit up to a slow pose model call.
var latencyBuckets = []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "fitmeasure",
		subsystem:        "measure",
		histogramBuckets: latencyBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) opts(name, help string) prometheus.Opts {
	return prometheus.Opts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.metricPrefix + name,
		Help:        help,
		ConstLabels: m.customLabels,
		Buckets:     buckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Measurement Metrics
	m.jobs = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("jobs_total", "Total number of measurement jobs by garment and outcome")),
		[]string{"garment", "outcome"},
	)
	m.jobLatency = auto.NewHistogramVec(
		m.histogramOpts("job_latency_milliseconds", "End-to-end job processing latency in milliseconds", m.histogramBuckets),
		[]string{"garment"},
	)
	m.detectionLatency = auto.NewHistogram(
		m.histogramOpts("detection_latency_milliseconds", "Pose model call latency in milliseconds", m.histogramBuckets),
	)
	m.scaleFallbacks = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("scale_fallbacks_total", "Jobs whose anchor distance was degenerate and used the width fallback")),
		[]string{"garment"},
	)
	m.estimatedSizes = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("estimated_sizes_total", "Estimated standard sizes by garment")),
		[]string{"garment", "size"},
	)
	m.measurementConfidence = auto.NewHistogramVec(
		m.histogramOpts("measurement_confidence", "Confidence score per measurement",
			[]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}),
		[]string{"measurement"},
	)

	// Cache Metrics
	m.cacheHits = auto.NewCounter(prometheus.CounterOpts(m.opts("cache_hits_total", "Result cache hits")))
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts(m.opts("cache_misses_total", "Result cache misses")))
	m.cacheErrors = auto.NewCounter(prometheus.CounterOpts(m.opts("cache_errors_total", "Result cache read or write failures")))

	// Job Store Metrics
	m.jobStoreSize = auto.NewGauge(prometheus.GaugeOpts(m.opts("job_store_size", "Number of jobs retained for status queries")))
	m.jobStoreEvictions = auto.NewCounter(prometheus.CounterOpts(m.opts("job_store_evictions_total", "Jobs evicted from the job store")))

	// HTTP Performance Metrics
	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("http_requests_total", "Total number of HTTP requests by endpoint and method")),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)
	m.rateLimited = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("rate_limited_total", "Requests rejected by the per-client rate limiter")),
		[]string{"endpoint"},
	)

	// Queue Metrics
	m.queueSize = auto.NewGauge(prometheus.GaugeOpts(m.opts("queue_size", "Current number of queued jobs")))
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts(m.opts("queue_capacity", "Maximum number of queued jobs")))
	m.queueUtilization = auto.NewGauge(prometheus.GaugeOpts(m.opts("queue_utilization_ratio", "Queue size divided by capacity")))
	m.queueEnqueueRate = auto.NewCounter(prometheus.CounterOpts(m.opts("queue_enqueue_total", "Jobs accepted by the queue")))
	m.queueDequeueRate = auto.NewCounter(prometheus.CounterOpts(m.opts("queue_dequeue_total", "Jobs handed to workers")))
	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts(m.opts("queue_enqueue_errors_total", "Jobs rejected by the queue")))
	m.queueProcessingLatency = auto.NewHistogram(
		m.histogramOpts("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds",
			[]float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10}),
	)

	// Worker Metrics
	m.workerActiveCount = auto.NewGauge(prometheus.GaugeOpts(m.opts("worker_active_count", "Number of running workers")))
	m.workerBusyCount = auto.NewGauge(prometheus.GaugeOpts(m.opts("worker_busy_count", "Number of workers currently processing a job")))
	m.workerMessagesPerSecond = auto.NewGauge(prometheus.GaugeOpts(m.opts("worker_jobs_per_second", "Jobs completed per second over the last interval")))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Worker job handling latency in milliseconds", m.histogramBuckets),
	)
	m.workerErrorRate = auto.NewCounter(prometheus.CounterOpts(m.opts("worker_errors_total", "Worker job handling errors")))
	m.workerPanics = auto.NewCounter(prometheus.CounterOpts(m.opts("worker_panics_total", "Panics recovered while processing a job")))

	// Error Metrics
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("errors_by_component_total", "Errors by component and type")),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("errors_by_type_total", "Errors by type and severity")),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts(m.opts("errors_by_endpoint_total", "Errors by endpoint, method and type")),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of failed operations in milliseconds", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts(m.opts("system_memory_usage_bytes", "Heap memory in use in bytes")))
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts(m.opts("system_goroutine_count", "Number of goroutines")))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "Most recent GC pause in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// Measurement Metrics Functions.

// RecordJob counts a finished job by garment and outcome.
func RecordJob(garment, outcome string) {
	globalManager.jobs.WithLabelValues(garment, outcome).Inc()
}

// RecordJobLatency records end-to-end job latency in milliseconds.
func RecordJobLatency(garment string, latencyMs float64) {
	globalManager.jobLatency.WithLabelValues(garment).Observe(latencyMs)
}

// RecordDetectionLatency records pose model latency in milliseconds.
func RecordDetectionLatency(latencyMs float64) {
	globalManager.detectionLatency.Observe(latencyMs)
}

// RecordScaleFallback counts a degenerate scale anchor.
func RecordScaleFallback(garment string) {
	globalManager.scaleFallbacks.WithLabelValues(garment).Inc()
}

// RecordEstimatedSize counts an estimated size.
func RecordEstimatedSize(garment, size string) {
	globalManager.estimatedSizes.WithLabelValues(garment, size).Inc()
}

// RecordMeasurementConfidence observes the confidence of one measurement.
func RecordMeasurementConfidence(measurement string, confidence float64) {
	globalManager.measurementConfidence.WithLabelValues(measurement).Observe(confidence)
}

// Cache Metrics Functions.

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() { globalManager.cacheHits.Inc() }

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() { globalManager.cacheMisses.Inc() }

// RecordCacheError increments the cache error counter.
func RecordCacheError() { globalManager.cacheErrors.Inc() }

// Job Store Metrics Functions.

// UpdateJobStoreSize sets the number of retained jobs.
func UpdateJobStoreSize(size int) {
	globalManager.jobStoreSize.Set(float64(size))
}

// RecordJobStoreEviction increments the eviction counter.
func RecordJobStoreEviction() {
	globalManager.jobStoreEvictions.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRateLimited counts a request rejected by the rate limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerBusyCount sets the number of workers holding a job.
func UpdateWorkerBusyCount(count int) {
	globalManager.workerBusyCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the job completion rate.
func UpdateWorkerMessagesPerSecond(rate float64) {
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
}

// RecordWorkerPanic increments the recovered panic counter.
func RecordWorkerPanic() {
	globalManager.workerPanics.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error for a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for an HTTP endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of a failed operation.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets heap memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
