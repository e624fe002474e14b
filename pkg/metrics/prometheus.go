// Package metrics provides Prometheus metrics for the classroom service.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the classroom service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Picker Metrics
	picksTotal      *prometheus.CounterVec
	pickLatency     prometheus.Histogram
	selectedWeight  prometheus.Histogram
	historyResets   *prometheus.CounterVec
	fairnessScore   *prometheus.GaugeVec
	rosterSize      *prometheus.GaugeVec
	emptyRosterHits prometheus.Counter

	// History Store Metrics
	storeLatency   *prometheus.HistogramVec
	storeConflicts *prometheus.CounterVec
	storeCorrupt   *prometheus.CounterVec

	// Cache Metrics
	cacheHits          *prometheus.CounterVec
	cacheMisses        *prometheus.CounterVec
	cacheInvalidations *prometheus.CounterVec
	cacheComputeErrors *prometheus.CounterVec

	// Hall Pass Metrics
	passesIssued   prometheus.Counter
	passesReturned prometheus.Counter
	passesActive   prometheus.Gauge
	passesOverdue  prometheus.Gauge

	// Audit Metrics
	auditRecorded  prometheus.Counter
	auditDuplicate prometheus.Counter
	auditDropped   prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Queue Metrics
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueueRate       prometheus.Counter
	queueDequeueRate       prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Worker Metrics
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

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
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "classroom",
		subsystem:        "picker",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}
	m.enabled.Store(true)
	m.refreshInterval.Store(int64(defaultRefreshInterval))

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// Enabled reports whether the manager records anything.
func (m *Manager) Enabled() bool {
	return m.enabled.Load()
}

// RefreshInterval is how often gauge metrics should be refreshed.
func (m *Manager) RefreshInterval() time.Duration {
	return time.Duration(m.refreshInterval.Load())
}

// Configure applies runtime options to the global manager. Only
// WithMetricsEnabled and WithRefreshInterval take effect after start-up;
// the naming options are fixed once the metrics are registered.
func Configure(opts ...Option) {
	for _, opt := range opts {
		opt(globalManager)
	}
}

// Enabled reports whether the package level recorders are active.
func Enabled() bool {
	return globalManager.Enabled()
}

// RefreshInterval is the gauge refresh interval of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

func (m *Manager) name(n string) string {
	return m.metricPrefix + n
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	})
}

func (m *Manager) gaugeVec(name, help string, labels ...string) *prometheus.GaugeVec {
	return promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help, ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name(name), Help: help,
		Buckets: m.histogramBuckets, ConstLabels: m.customLabels,
	}, labels)
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one registration per metric
	m.picksTotal = m.counterVec("picks_total", "Total number of students picked", "class")
	m.pickLatency = m.histogram("pick_latency_milliseconds", "Histogram of pick latency in milliseconds")
	m.selectedWeight = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: m.name("selected_weight"),
		Help:    "Weight of the student chosen by each draw",
		Buckets: []float64{0.1, 1, 2, 4, 8, 16, 24, 48, 96, 192}, ConstLabels: m.customLabels,
	})
	m.historyResets = m.counterVec("history_resets_total", "Total number of history resets", "class")
	m.fairnessScore = m.gaugeVec("fairness_score", "Fairness score of today's picks", "class")
	m.rosterSize = m.gaugeVec("roster_size", "Number of students on the resolved roster", "class")
	m.emptyRosterHits = m.counter("empty_roster_total", "Picks refused because no students were available")

	m.storeLatency = m.histogramVec("store_operation_latency_milliseconds",
		"History store operation latency in milliseconds", "backend", "op")
	m.storeConflicts = m.counterVec("store_conflicts_total",
		"Optimistic transaction conflicts in the history store", "backend")
	m.storeCorrupt = m.counterVec("store_corrupt_payloads_total",
		"Stored payloads that could not be decoded", "backend")

	m.cacheHits = m.counterVec("cache_hits_total", "Cache hits", "cache")
	m.cacheMisses = m.counterVec("cache_misses_total", "Cache misses", "cache")
	m.cacheInvalidations = m.counterVec("cache_invalidations_total", "Cache invalidations", "cache")
	m.cacheComputeErrors = m.counterVec("cache_compute_errors_total", "Cache compute failures", "cache")

	m.passesIssued = m.counter("hall_passes_issued_total", "Total hall passes issued")
	m.passesReturned = m.counter("hall_passes_returned_total", "Total hall passes returned")
	m.passesActive = m.gauge("hall_passes_active", "Hall passes currently out")
	m.passesOverdue = m.gauge("hall_passes_overdue", "Hall passes currently overdue")

	m.auditRecorded = m.counter("audit_events_recorded_total", "Pick events written to the audit log")
	m.auditDuplicate = m.counter("audit_events_duplicate_total", "Pick events skipped as duplicates")
	m.auditDropped = m.counter("audit_events_dropped_total", "Pick events dropped on backpressure")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.queueSize = m.gauge("queue_size", "Current size of the audit queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the audit queue")
	m.queueUtilization = m.gauge("queue_utilization", "Audit queue utilization ratio (0-1)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total events enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total enqueue failures")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds",
		"Time events spent in the queue in milliseconds")

	m.workerCount = m.gauge("worker_count", "Configured audit workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Audit workers processing an event")
	m.workerIdleCount = m.gauge("worker_idle_count", "Audit workers waiting for an event")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Audit worker processing latency in milliseconds")
	m.workerErrorRate = m.counter("worker_errors_total", "Audit worker failures")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Errors by component and type", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Errors by type and severity", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of failed operations in milliseconds", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_bytes", "Heap memory in use")
	m.systemGoroutineCount = m.gauge("system_goroutines", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_milliseconds", "Last GC pause in milliseconds")
}

// Picker Metrics Functions.

// RecordPick counts a pick for class and its latency.
func RecordPick(class string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.picksTotal.WithLabelValues(class).Inc()
	globalManager.pickLatency.Observe(latencyMs)
}

// RecordSelectedWeight observes the weight of a drawn student.
func RecordSelectedWeight(w float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.selectedWeight.Observe(w)
}

// RecordHistoryReset counts a history reset for class.
func RecordHistoryReset(class string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.historyResets.WithLabelValues(class).Inc()
}

// UpdateFairnessScore sets the current fairness score for class.
func UpdateFairnessScore(class string, score float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.fairnessScore.WithLabelValues(class).Set(score)
}

// UpdateRosterSize sets the resolved roster size for class.
func UpdateRosterSize(class string, size int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.rosterSize.WithLabelValues(class).Set(float64(size))
}

// RecordEmptyRoster counts a refused pick.
func RecordEmptyRoster() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.emptyRosterHits.Inc()
}

// Store Metrics Functions.

// RecordStoreLatency records a history store operation latency.
func RecordStoreLatency(backend, op string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.storeLatency.WithLabelValues(backend, op).Observe(latencyMs)
}

// RecordStoreConflict counts an optimistic transaction conflict.
func RecordStoreConflict(backend string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.storeConflicts.WithLabelValues(backend).Inc()
}

// RecordStoreCorrupt counts a payload that failed to decode.
func RecordStoreCorrupt(backend string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.storeCorrupt.WithLabelValues(backend).Inc()
}

// Cache Metrics Functions.

// RecordCacheHit counts a hit on cache.
func RecordCacheHit(cache string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a miss on cache.
func RecordCacheMiss(cache string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordCacheInvalidation counts an invalidation on cache.
func RecordCacheInvalidation(cache string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.cacheInvalidations.WithLabelValues(cache).Inc()
}

// RecordCacheComputeError counts a failed compute on cache.
func RecordCacheComputeError(cache string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.cacheComputeErrors.WithLabelValues(cache).Inc()
}

// Hall Pass Metrics Functions.

// RecordPassIssued counts an issued pass.
func RecordPassIssued() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.passesIssued.Inc()
}

// RecordPassReturned counts a returned pass.
func RecordPassReturned() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.passesReturned.Inc()
}

// UpdatePassGauges sets the active and overdue pass gauges.
func UpdatePassGauges(active, overdue int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.passesActive.Set(float64(active))
	globalManager.passesOverdue.Set(float64(overdue))
}

// Audit Metrics Functions.

// RecordAuditRecorded counts an event written to the audit log.
func RecordAuditRecorded() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.auditRecorded.Inc()
}

// RecordAuditDuplicate counts a duplicate audit event.
func RecordAuditDuplicate() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.auditDuplicate.Inc()
}

// RecordAuditDropped counts an audit event dropped on backpressure.
func RecordAuditDropped() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.auditDropped.Inc()
}

// HTTP Metrics Functions.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured number of workers.
func UpdateWorkerCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !globalManager.enabled.Load() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
