// Package metrics provides Prometheus metrics for the line monitoring service.
package metrics

import (
	"context"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval    = 10 * time.Second
	nanosecondsPerMillisecond = 1e6
	imageBytesStart           = 16 * 1024
	imageBytesFactor          = 2
	imageBytesCount           = 10
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Reading log
	readingsAppended  *prometheus.CounterVec
	readingStatus     *prometheus.CounterVec
	corrections       *prometheus.CounterVec
	logSize           prometheus.Gauge
	lastRate          prometheus.Gauge
	repositoryLatency *prometheus.HistogramVec

	// Recognition
	ocrRequests       *prometheus.CounterVec
	ocrLatency        *prometheus.HistogramVec
	normalizeDegraded *prometheus.CounterVec

	// Capture pipeline
	captureRejected prometheus.Counter
	captureInFlight prometheus.Gauge
	imageBytes      prometheus.Histogram
	imageCacheSize  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System
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
		namespace:        "linewatch",
		subsystem:        "line",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.readingsAppended = auto.NewCounterVec(
		m.counterOpts("readings_appended_total", "Readings appended to the log by source and relevance"),
		[]string{"source", "relevant"},
	)
	m.readingStatus = auto.NewCounterVec(
		m.counterOpts("reading_status_total", "Derived statuses assigned to readings"),
		[]string{"status"},
	)
	m.corrections = auto.NewCounterVec(
		m.counterOpts("corrections_total", "Manual corrections applied to logged readings"),
		[]string{"field"},
	)
	m.logSize = auto.NewGauge(m.gaugeOpts("log_entries", "Number of entries in the reading log"))
	m.lastRate = auto.NewGauge(m.gaugeOpts("last_rate_per_minute", "Most recently derived production rate"))
	m.repositoryLatency = auto.NewHistogramVec(
		m.histogramOpts("repository_latency_milliseconds", "Reading log operation latency", m.histogramBuckets),
		[]string{"operation"},
	)

	m.ocrRequests = auto.NewCounterVec(
		m.counterOpts("ocr_requests_total", "Recognition requests by backend and outcome code"),
		[]string{"backend", "code"},
	)
	m.ocrLatency = auto.NewHistogramVec(
		m.histogramOpts("ocr_latency_milliseconds", "Recognition round-trip latency",
			prometheus.ExponentialBuckets(50, 2, 10)), //nolint:mnd // 50ms..25s
		[]string{"backend"},
	)
	m.normalizeDegraded = auto.NewCounterVec(
		m.counterOpts("normalize_degraded_total", "Recognizer replies that could not be parsed"),
		[]string{"mode"},
	)

	m.captureRejected = auto.NewCounter(m.counterOpts("capture_rejected_total", "Captures refused because another was in flight"))
	m.captureInFlight = auto.NewGauge(m.gaugeOpts("capture_in_flight", "Whether a capture is currently being processed"))
	m.imageBytes = auto.NewHistogram(m.histogramOpts("image_bytes", "Size of prepared images sent for recognition",
		prometheus.ExponentialBuckets(imageBytesStart, imageBytesFactor, imageBytesCount)))
	m.imageCacheSize = auto.NewGauge(m.gaugeOpts("image_cache_entries", "Thumbnails held in the image cache"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Errors by component and type"),
		[]string{"component", "error_type"},
	)
	m.errorRateByType = auto.NewCounterVec(
		m.counterOpts("errors_by_type_total", "Errors by type and severity"),
		[]string{"error_type", "severity"},
	)
	m.errorRateByEndpoint = auto.NewCounterVec(
		m.counterOpts("errors_by_endpoint_total", "Errors by endpoint, method and type"),
		[]string{"endpoint", "method", "error_type"},
	)
	m.errorLatency = auto.NewHistogramVec(
		m.histogramOpts("error_latency_milliseconds", "Latency of operations that ended in an error", m.histogramBuckets),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogramOpts("system_gc_pause_time_milliseconds",
		"Average GC pause time in milliseconds", m.histogramBuckets))
}

// Reading log.

// RecordReadingAppended counts an appended reading.
func RecordReadingAppended(source string, relevant bool) {
	if !globalManager.enabled {
		return
	}
	globalManager.readingsAppended.WithLabelValues(source, strconv.FormatBool(relevant)).Inc()
}

// RecordReadingStatus counts a derived status.
func RecordReadingStatus(status string) {
	if !globalManager.enabled {
		return
	}
	globalManager.readingStatus.WithLabelValues(status).Inc()
}

// RecordCorrection counts a correction to the given field.
func RecordCorrection(field string) {
	if !globalManager.enabled {
		return
	}
	globalManager.corrections.WithLabelValues(field).Inc()
}

// UpdateLogSize sets the number of log entries.
func UpdateLogSize(size int) {
	if !globalManager.enabled {
		return
	}
	globalManager.logSize.Set(float64(size))
}

// UpdateLastRate sets the most recently derived rate.
func UpdateLastRate(rate int64) {
	if !globalManager.enabled {
		return
	}
	globalManager.lastRate.Set(float64(rate))
}

// RecordRepositoryLatency observes the latency of a log operation.
func RecordRepositoryLatency(operation string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.repositoryLatency.WithLabelValues(operation).Observe(latencyMs)
}

// Recognition.

// RecordOCRRequest counts a recognition call and its outcome code.
func RecordOCRRequest(backend, code string) {
	if !globalManager.enabled {
		return
	}
	globalManager.ocrRequests.WithLabelValues(backend, code).Inc()
}

// RecordOCRLatency observes a recognition round trip.
func RecordOCRLatency(backend string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.ocrLatency.WithLabelValues(backend).Observe(latencyMs)
}

// RecordNormalizeDegraded counts a reply that fell back to a degraded record.
func RecordNormalizeDegraded(mode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.normalizeDegraded.WithLabelValues(mode).Inc()
}

// Capture pipeline.

// RecordCaptureRejected counts a capture refused by the single-flight gate.
func RecordCaptureRejected() {
	if !globalManager.enabled {
		return
	}
	globalManager.captureRejected.Inc()
}

// UpdateCaptureInFlight marks whether a capture is running.
func UpdateCaptureInFlight(inFlight bool) {
	if !globalManager.enabled {
		return
	}
	v := 0.0
	if inFlight {
		v = 1
	}
	globalManager.captureInFlight.Set(v)
}

// RecordImageBytes observes the size of a prepared image.
func RecordImageBytes(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.imageBytes.Observe(float64(n))
}

// UpdateImageCacheSize sets the number of cached thumbnails.
func UpdateImageCacheSize(n int) {
	if !globalManager.enabled {
		return
	}
	globalManager.imageCacheSize.Set(float64(n))
}

// HTTP.

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Errors.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// System.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// CollectRuntime samples memory, goroutine and GC figures once.
func CollectRuntime() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	UpdateSystemMemoryUsage(ms.Alloc)
	UpdateSystemGoroutineCount(runtime.NumGoroutine())
	if ms.NumGC > 0 {
		RecordSystemGCPauseTime(float64(ms.PauseTotalNs) / float64(ms.NumGC) / nanosecondsPerMillisecond)
	}
}

// RunRuntimeCollector samples runtime figures every refresh interval until ctx is done.
func RunRuntimeCollector(ctx context.Context) error {
	if !globalManager.enabled {
		return ErrDisabled
	}
	ticker := time.NewTicker(globalManager.refreshInterval)
	defer ticker.Stop()
	CollectRuntime()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			CollectRuntime()
		}
	}
}

// Configure rebuilds the global manager on a fresh registry with opts.
// Call it before GetRegistry is handed to an exposition handler.
func Configure(opts ...Option) {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append([]Option{WithPrometheusRegistry(customRegistry)}, opts...)...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
