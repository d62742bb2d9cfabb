// Package metrics provides Prometheus metrics for the sofascout crawler.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every crawler metric registered on one registry.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event bus
	exchangesObserved prometheus.Counter
	exchangesDropped  *prometheus.CounterVec
	hubQueueSize      prometheus.Gauge
	hubQueueCapacity  prometheus.Gauge
	hubSubscribers    prometheus.Gauge
	hubDispatch       prometheus.Histogram

	// Correlator
	waitsTotal    *prometheus.CounterVec
	waitDuration  prometheus.Histogram
	payloadErrors prometheus.Counter

	// Matcher
	matchesTotal *prometheus.CounterVec

	// Pipeline
	itemsTotal   *prometheus.CounterVec
	retriesTotal prometheus.Counter
	scopeErrors  prometheus.Counter

	// Browser
	navigations  *prometheus.CounterVec
	fetchesTotal *prometheus.CounterVec
	fetchLatency prometheus.Histogram

	// Repository
	upsertsTotal  *prometheus.CounterVec
	upsertLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors and system
	errorsByComponent    *prometheus.CounterVec
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton used by the package-level recorders

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // registry served on /metrics

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sofascout",
		subsystem:        "crawler",
		histogramBuckets: []float64{5, 25, 100, 250, 500, 1000, 2500, 5000, 10000, 20000, 30000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.exchangesObserved = auto.NewCounter(m.counterOpts("exchanges_observed_total", "Network responses published to the event bus"))
	m.exchangesDropped = auto.NewCounterVec(m.counterOpts("exchanges_dropped_total", "Network responses dropped before dispatch"), []string{"reason"})
	m.hubQueueSize = auto.NewGauge(m.gaugeOpts("hub_queue_size", "Responses waiting for dispatch"))
	m.hubQueueCapacity = auto.NewGauge(m.gaugeOpts("hub_queue_capacity", "Capacity of the dispatch queue"))
	m.hubSubscribers = auto.NewGauge(m.gaugeOpts("hub_subscribers", "Active subscriptions on the event bus"))
	m.hubDispatch = auto.NewHistogram(m.histogramOpts("hub_dispatch_milliseconds", "Time to deliver one response to all subscribers"))

	m.waitsTotal = auto.NewCounterVec(m.counterOpts("correlation_waits_total", "Correlation waits by outcome"), []string{"outcome"})
	m.waitDuration = auto.NewHistogram(m.histogramOpts("correlation_wait_milliseconds", "Time from wait registration to resolution"))
	m.payloadErrors = auto.NewCounter(m.counterOpts("correlation_payload_errors_total", "Qualifying responses whose body could not be read or parsed"))

	m.matchesTotal = auto.NewCounterVec(m.counterOpts("matcher_results_total", "Fuzzy match results by strategy"), []string{"strategy"})

	m.itemsTotal = auto.NewCounterVec(m.counterOpts("pipeline_items_total", "Pipeline items by stage and outcome"), []string{"stage", "outcome"})
	m.retriesTotal = auto.NewCounter(m.counterOpts("pipeline_retries_total", "Retry attempts after a failed attempt"))
	m.scopeErrors = auto.NewCounter(m.counterOpts("pipeline_scope_failures_total", "Scopes abandoned because upstream context was missing"))

	m.navigations = auto.NewCounterVec(m.counterOpts("browser_navigations_total", "Page navigations by status"), []string{"status"})
	m.fetchesTotal = auto.NewCounterVec(m.counterOpts("browser_fetches_total", "In-page API fetches by status"), []string{"status"})
	m.fetchLatency = auto.NewHistogram(m.histogramOpts("browser_fetch_milliseconds", "In-page API fetch latency"))

	m.upsertsTotal = auto.NewCounterVec(m.counterOpts("repository_upserts_total", "Row upserts by table and status"), []string{"table", "status"})
	m.upsertLatency = auto.NewHistogram(m.histogramOpts("repository_upsert_milliseconds", "Upsert latency"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration"), []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_total", "Errors by component and type"), []string{"component", "type"})
	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutines", "Number of goroutines"))
}

// RecordExchangeObserved counts a response published to the bus.
func RecordExchangeObserved() { globalManager.exchangesObserved.Inc() }

// RecordExchangeDropped counts a response that never reached subscribers.
func RecordExchangeDropped(reason string) { globalManager.exchangesDropped.WithLabelValues(reason).Inc() }

// UpdateHubQueueSize sets the dispatch backlog.
func UpdateHubQueueSize(size int) { globalManager.hubQueueSize.Set(float64(size)) }

// UpdateHubQueueCapacity sets the dispatch queue capacity.
func UpdateHubQueueCapacity(capacity int) { globalManager.hubQueueCapacity.Set(float64(capacity)) }

// UpdateHubSubscribers sets the number of live subscriptions.
func UpdateHubSubscribers(count int) { globalManager.hubSubscribers.Set(float64(count)) }

// RecordHubDispatchLatency records one broadcast in milliseconds.
func RecordHubDispatchLatency(latencyMs float64) { globalManager.hubDispatch.Observe(latencyMs) }

// RecordWait records a resolved wait: matched, partial, timeout or cancelled.
func RecordWait(outcome string, latencyMs float64) {
	globalManager.waitsTotal.WithLabelValues(outcome).Inc()
	globalManager.waitDuration.Observe(latencyMs)
}

// RecordPayloadError counts an unreadable or unparsable qualifying body.
func RecordPayloadError() { globalManager.payloadErrors.Inc() }

// RecordMatch counts a matcher outcome by strategy name ("none" for no match).
func RecordMatch(strategy string) { globalManager.matchesTotal.WithLabelValues(strategy).Inc() }

// RecordItem counts a pipeline item outcome: succeeded, failed or skipped.
func RecordItem(stage, outcome string) { globalManager.itemsTotal.WithLabelValues(stage, outcome).Inc() }

// RecordRetry counts one retry attempt.
func RecordRetry() { globalManager.retriesTotal.Inc() }

// RecordScopeFailure counts an abandoned scope.
func RecordScopeFailure() { globalManager.scopeErrors.Inc() }

// RecordNavigation counts a navigation by status ("ok" or "error").
func RecordNavigation(status string) { globalManager.navigations.WithLabelValues(status).Inc() }

// RecordFetch counts an in-page fetch and its latency.
func RecordFetch(status string, latencyMs float64) {
	globalManager.fetchesTotal.WithLabelValues(status).Inc()
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordUpsert counts an upsert and its latency.
func RecordUpsert(table, status string, latencyMs float64) {
	globalManager.upsertsTotal.WithLabelValues(table, status).Inc()
	globalManager.upsertLatency.Observe(latencyMs)
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent counts an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
