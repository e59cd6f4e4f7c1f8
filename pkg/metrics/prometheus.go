// Package metrics provides Prometheus metrics for the vibe recommender service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Recommendation engine
	recommendations     prometheus.Counter
	recommendLatency    prometheus.Histogram
	explorations        prometheus.Counter
	cooldownPenalties   prometheus.Counter
	cooldownPrunes      prometheus.Counter
	fallbackEmotions    prometheus.Counter
	recommendationCount prometheus.Histogram

	// Feedback learner
	feedback          *prometheus.CounterVec
	feedbackDuplicate prometheus.Counter
	feedbackErrors    prometheus.Counter
	clampEvents       *prometheus.CounterVec

	// Fusion aligner
	fusionReadings *prometheus.CounterVec

	// Preference store
	profilesTotal       prometheus.Gauge
	storePersistLatency prometheus.Histogram
	storeSaveLatency    prometheus.Histogram
	storeErrors         *prometheus.CounterVec

	// Ingest queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueue       prometheus.Counter
	queueDequeue       prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByComponent   *prometheus.CounterVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry avoids exporting default Go collectors twice.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vibe",
		subsystem:        "recommender",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets, ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all collectors.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	m.recommendations = m.counter("recommendations_total", "Total number of recommendation requests served")
	m.recommendLatency = m.histogram("recommend_latency_milliseconds", "Recommendation latency in milliseconds, including the profile lock wait", m.histogramBuckets)
	m.explorations = m.counter("explorations_total", "Recommendations that took the exploration branch")
	m.cooldownPenalties = m.counter("cooldown_penalties_total", "Genres penalized because of an active cooldown")
	m.cooldownPrunes = m.counter("cooldown_prunes_total", "Expired cooldown entries removed from profiles")
	m.fallbackEmotions = m.counter("fallback_emotions_total", "Recommendations for an emotion without a configured genre list")
	m.recommendationCount = m.histogram("recommendation_list_length", "Number of genres returned per recommendation", []float64{0, 1, 2, 3, 5, 8, 13})

	m.feedback = m.counterVec("feedback_total", "Feedback events applied by outcome", "outcome")
	m.feedbackDuplicate = m.counter("feedback_duplicate_total", "Feedback events dropped as duplicates")
	m.feedbackErrors = m.counter("feedback_errors_total", "Feedback events that failed to apply or persist")
	m.clampEvents = m.counterVec("clamp_events_total", "Updates that hit a learned-weight bound", "kind")

	m.fusionReadings = m.counterVec("fusion_readings_total", "Fused readings by resolution", "resolution")

	m.profilesTotal = m.gauge("profiles_total", "Number of user profiles held in memory")
	m.storePersistLatency = m.histogram("store_persist_latency_milliseconds", "Latency of persisting a mutated profile", m.histogramBuckets)
	m.storeSaveLatency = m.histogram("store_save_latency_milliseconds", "Latency of a full-store snapshot save", m.histogramBuckets)
	m.storeErrors = m.counterVec("store_errors_total", "Preference store failures by operation", "operation")

	m.queueSize = m.gauge("queue_size", "Current size of the feedback ingest queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum ingest queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (size / capacity)")
	m.queueEnqueue = m.counter("queue_enqueue_total", "Total number of feedback events enqueued")
	m.queueDequeue = m.counter("queue_dequeue_total", "Total number of feedback events dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.workerCount = m.gauge("worker_count", "Number of ingest workers")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})
	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint", "endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "Average GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// Recommendation metrics.

// RecordRecommendation records one served recommendation.
func RecordRecommendation(latencyMs float64, returned int) {
	globalManager.recommendations.Inc()
	globalManager.recommendLatency.Observe(latencyMs)
	globalManager.recommendationCount.Observe(float64(returned))
}

// RecordExploration increments the exploration counter.
func RecordExploration() { globalManager.explorations.Inc() }

// RecordCooldownPenalty counts genres penalized by an active cooldown.
func RecordCooldownPenalty(n int) { globalManager.cooldownPenalties.Add(float64(n)) }

// RecordCooldownPrunes counts expired cooldowns removed from a profile.
func RecordCooldownPrunes(n int) { globalManager.cooldownPrunes.Add(float64(n)) }

// RecordFallbackEmotion counts recommendations that used the fallback genre list.
func RecordFallbackEmotion() { globalManager.fallbackEmotions.Inc() }

// Feedback metrics.

// RecordFeedback counts an applied feedback event by outcome.
func RecordFeedback(outcome string) { globalManager.feedback.WithLabelValues(outcome).Inc() }

// RecordFeedbackDuplicate counts a feedback event dropped by idempotency.
func RecordFeedbackDuplicate() { globalManager.feedbackDuplicate.Inc() }

// RecordFeedbackError counts a feedback event that failed.
func RecordFeedbackError() { globalManager.feedbackErrors.Inc() }

// RecordClamp counts an update that hit a bound; kind is "genre" or "emotion".
func RecordClamp(kind string) { globalManager.clampEvents.WithLabelValues(kind).Inc() }

// Fusion metrics.

// RecordFusion counts a fused reading; resolution is agreement, gesture, context or unmatched.
func RecordFusion(resolution string) { globalManager.fusionReadings.WithLabelValues(resolution).Inc() }

// Store metrics.

// UpdateProfilesTotal sets the number of profiles in memory.
func UpdateProfilesTotal(count int) { globalManager.profilesTotal.Set(float64(count)) }

// RecordStorePersistLatency records the latency of persisting one profile.
func RecordStorePersistLatency(latencyMs float64) { globalManager.storePersistLatency.Observe(latencyMs) }

// RecordStoreSaveLatency records the latency of a full snapshot save.
func RecordStoreSaveLatency(latencyMs float64) { globalManager.storeSaveLatency.Observe(latencyMs) }

// RecordStoreError counts a store failure for the given operation (load, persist, save).
func RecordStoreError(operation string) { globalManager.storeErrors.WithLabelValues(operation).Inc() }

// Queue metrics.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueue.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeue.Inc() }

// RecordQueueEnqueueError increments the rejected enqueue counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Worker metrics.

// UpdateWorkerCount sets the number of ingest workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// HTTP metrics.

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// System metrics.

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
