// Package metrics provides Prometheus metrics for the pixelrelay service.
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

// Manager manages all Prometheus metrics for the pixelrelay service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          atomic.Bool
	refreshInterval  atomic.Int64
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Translation metrics
	eventsReceived     *prometheus.CounterVec
	eventsEmitted      *prometheus.CounterVec
	eventsSuppressed   *prometheus.CounterVec
	eventsUnregistered *prometheus.CounterVec
	eventsDuplicate    prometheus.Counter
	mappingLatency     prometheus.Histogram

	// Consent metrics
	consentUpdates prometheus.Counter
	consentSignal  *prometheus.GaugeVec

	// Delivery metrics
	deliveries      *prometheus.CounterVec
	deliveryLatency prometheus.Histogram
	sinkDropped     prometheus.Counter

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
	workerMessagesPerSecond prometheus.Gauge
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
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "pixelrelay",
		subsystem:        "relay",
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

// name applies the configured metric prefix.
func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)
	labels := prometheus.Labels(m.customLabels)

	counterVec := func(name, help string, labelNames ...string) *prometheus.CounterVec {
		return auto.NewCounterVec(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		}, labelNames)
	}
	counter := func(name, help string) prometheus.Counter {
		return auto.NewCounter(prometheus.CounterOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return auto.NewGauge(prometheus.GaugeOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			ConstLabels: labels,
		})
	}
	histogram := func(name, help string, buckets []float64) prometheus.Histogram {
		return auto.NewHistogram(prometheus.HistogramOpts{
			Namespace:   m.namespace,
			Subsystem:   m.subsystem,
			Name:        m.name(name),
			Help:        help,
			Buckets:     buckets,
			ConstLabels: labels,
		})
	}

	// Translation metrics
	m.eventsReceived = counterVec("events_received_total",
		"Storefront events received by source event name", "event")
	m.eventsEmitted = counterVec("events_emitted_total",
		"Canonical events handed to the sink by canonical event name", "event")
	m.eventsSuppressed = counterVec("events_suppressed_total",
		"Storefront events suppressed by a mapping rule", "event")
	m.eventsUnregistered = counterVec("events_unregistered_total",
		"Storefront events with no enabled mapping", "event")
	m.eventsDuplicate = counter("events_duplicate_total",
		"Storefront events dropped as duplicates")
	m.mappingLatency = histogram("mapping_latency_milliseconds",
		"Time spent mapping one storefront event",
		[]float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10})

	// Consent metrics
	m.consentUpdates = counter("consent_updates_total",
		"Consent change notifications translated")
	m.consentSignal = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("consent_signal_granted"),
		Help:        "Current consent signal value (1 granted, 0 denied)",
		ConstLabels: labels,
	}, []string{"signal"})

	// Delivery metrics
	m.deliveries = counterVec("deliveries_total",
		"Collector delivery attempts by status", "status")
	m.deliveryLatency = histogram("delivery_latency_milliseconds",
		"Collector delivery latency in milliseconds", m.histogramBuckets)
	m.sinkDropped = counter("sink_dropped_total",
		"Envelopes dropped by the sink because the queue refused them")

	// HTTP Performance Metrics
	m.httpRequests = counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"endpoint", "method", "status_code"})

	// Queue Metrics
	m.queueSize = gauge("queue_size", "Current size of the delivery queue")
	m.queueCapacity = gauge("queue_capacity", "Maximum delivery queue capacity")
	m.queueUtilization = gauge("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = counter("queue_enqueue_total", "Total number of envelopes enqueued")
	m.queueDequeueRate = counter("queue_dequeue_total", "Total number of envelopes dequeued")
	m.queueEnqueueErrors = counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = histogram("queue_processing_latency_milliseconds",
		"Queue enqueue latency in milliseconds", m.histogramBuckets)

	// Worker Metrics
	m.workerCount = gauge("worker_count", "Configured number of delivery workers")
	m.workerActiveCount = gauge("worker_active_count", "Number of running delivery workers")
	m.workerMessagesPerSecond = gauge("worker_messages_per_second",
		"Average envelopes delivered per second")
	m.workerProcessingLatency = histogram("worker_processing_latency_milliseconds",
		"Worker processing latency in milliseconds", m.histogramBuckets)
	m.workerErrorRate = counter("worker_errors_total", "Total number of worker errors")

	// Error Metrics
	m.errorRateByComponent = counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("error_latency_milliseconds"),
		Help:        "Latency of operations that resulted in errors",
		Buckets:     m.histogramBuckets,
		ConstLabels: labels,
	}, []string{"component", "error_type"})

	// System Performance Metrics
	m.systemMemoryUsage = gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = histogram("system_gc_pause_time_milliseconds",
		"GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordEventReceived counts an inbound storefront event.
func RecordEventReceived(event string) {
	if !on() {
		return
	}
	globalManager.eventsReceived.WithLabelValues(event).Inc()
}

// RecordEventEmitted counts a canonical event handed to the sink.
func RecordEventEmitted(event string) {
	if !on() {
		return
	}
	globalManager.eventsEmitted.WithLabelValues(event).Inc()
}

// RecordEventSuppressed counts a storefront event dropped by a mapping rule.
func RecordEventSuppressed(event string) {
	if !on() {
		return
	}
	globalManager.eventsSuppressed.WithLabelValues(event).Inc()
}

// RecordEventUnregistered counts a storefront event with no enabled mapping.
func RecordEventUnregistered(event string) {
	if !on() {
		return
	}
	globalManager.eventsUnregistered.WithLabelValues(event).Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	if !on() {
		return
	}
	globalManager.eventsDuplicate.Inc()
}

// RecordMappingLatency records mapping latency in milliseconds.
func RecordMappingLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.mappingLatency.Observe(latencyMs)
}

// RecordConsentUpdate counts a consent notification and publishes the
// resulting signal values.
func RecordConsentUpdate(signals map[string]bool) {
	if !on() {
		return
	}
	globalManager.consentUpdates.Inc()
	for signal, granted := range signals {
		v := 0.0
		if granted {
			v = 1
		}
		globalManager.consentSignal.WithLabelValues(signal).Set(v)
	}
}

// RecordDelivery records one collector delivery attempt.
func RecordDelivery(status string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.deliveries.WithLabelValues(status).Inc()
	globalManager.deliveryLatency.Observe(latencyMs)
}

// RecordSinkDropped increments the dropped envelopes counter.
func RecordSinkDropped() {
	if !on() {
		return
	}
	globalManager.sinkDropped.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !on() {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !on() {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Queue Metrics Functions.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	if !on() {
		return
	}
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	if !on() {
		return
	}
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	if !on() {
		return
	}
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	if !on() {
		return
	}
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	if !on() {
		return
	}
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue errors counter.
func RecordQueueEnqueueError() {
	if !on() {
		return
	}
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// Worker Metrics Functions.

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	if !on() {
		return
	}
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	if !on() {
		return
	}
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerMessagesPerSecond sets the delivery rate.
func UpdateWorkerMessagesPerSecond(rate float64) {
	if !on() {
		return
	}
	globalManager.workerMessagesPerSecond.Set(rate)
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	if !on() {
		return
	}
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker errors counter.
func RecordWorkerError() {
	if !on() {
		return
	}
	globalManager.workerErrorRate.Inc()
}

// Error Metrics Functions.

// RecordErrorByComponent records an error for a specific component.
func RecordErrorByComponent(component, errorType string) {
	if !on() {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error by type and severity.
func RecordErrorByType(errorType, severity string) {
	if !on() {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error for a specific endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !on() {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !on() {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage.
func UpdateSystemMemoryUsage(bytes uint64) {
	if !on() {
		return
	}
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	if !on() {
		return
	}
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time.
func RecordSystemGCPauseTime(pauseMs float64) {
	if !on() {
		return
	}
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

func on() bool { return globalManager.enabled.Load() }

// SetEnabled turns recording on or off. While disabled every Record and
// Update helper is a no-op; registered metrics keep their last values.
func SetEnabled(enabled bool) {
	globalManager.enabled.Store(enabled)
}

// Enabled reports whether the global manager records metrics.
func Enabled() bool {
	return globalManager.Enabled()
}

// SetRefreshInterval sets how often periodic gauges are refreshed.
// Non-positive values are ignored.
func SetRefreshInterval(d time.Duration) {
	if d > 0 {
		globalManager.refreshInterval.Store(int64(d))
	}
}

// RefreshInterval is the period of the gauge updaters.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}

// GetRegistry returns the registry backing the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
