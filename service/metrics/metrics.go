package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// It is passed explicitly to the components that record metrics; the viewer
// controller consumes it through the viewer.Recorder interface.
type Metrics struct {
	// Viewer synchronization metrics
	viewerFetchesTotal     *prometheus.CounterVec
	viewerFetchDuration    *prometheus.HistogramVec
	viewerMergedTotal      *prometheus.CounterVec
	viewerDuplicatesTotal  *prometheus.CounterVec
	viewerStaleDiscards    *prometheus.CounterVec
	viewerOverlayOverrides prometheus.Gauge

	// Store metrics
	storeQueryDuration   *prometheus.HistogramVec
	storeOperationsTotal *prometheus.CounterVec

	// HTTP metrics
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsTotal    *prometheus.CounterVec
	sseActiveConnections prometheus.Gauge
	sseEventsSent        *prometheus.CounterVec

	// NATS metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		viewerFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_fetches_total",
				Help: "Total number of viewer data source requests by source and status",
			},
			[]string{"source", "status"},
		),
		viewerFetchDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewer_fetch_duration_seconds",
				Help:    "Duration of viewer data source requests in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"source"},
		),
		viewerMergedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_transactions_merged_total",
				Help: "Total number of transactions appended to the visible list",
			},
			[]string{"source"},
		),
		viewerDuplicatesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_transactions_duplicate_total",
				Help: "Total number of fetched transactions dropped because they were already listed",
			},
			[]string{"source"},
		),
		viewerStaleDiscards: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_stale_discards_total",
				Help: "Total number of fetch results discarded after a filter change",
			},
			[]string{"source"},
		),
		viewerOverlayOverrides: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "viewer_overlay_overrides",
				Help: "Number of approval overrides held by the edit overlay",
			},
		),

		storeQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_query_duration_seconds",
				Help:    "Duration of store queries in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
			},
			[]string{"operation"},
		),
		storeOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_operations_total",
				Help: "Total number of store operations by status",
			},
			[]string{"operation", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),
		sseActiveConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sse_active_connections",
				Help: "Number of active SSE approval stream connections",
			},
		),
		sseEventsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sse_events_sent_total",
				Help: "Total number of SSE events sent",
			},
			[]string{"event_type"},
		),

		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"status"},
		),
	}
}

// Viewer metric helpers

// RecordFetch records a viewer data source request.
func (m *Metrics) RecordFetch(source, status string, duration float64) {
	m.viewerFetchesTotal.WithLabelValues(source, status).Inc()
	m.viewerFetchDuration.WithLabelValues(source).Observe(duration)
}

// RecordMerge records the outcome of merging a batch into the visible list.
func (m *Metrics) RecordMerge(source string, appended, duplicates int) {
	m.viewerMergedTotal.WithLabelValues(source).Add(float64(appended))
	m.viewerDuplicatesTotal.WithLabelValues(source).Add(float64(duplicates))
}

// RecordStaleDiscard records a fetch result dropped after a filter change.
func (m *Metrics) RecordStaleDiscard(source string) {
	m.viewerStaleDiscards.WithLabelValues(source).Inc()
}

// SetOverlaySize records the number of overrides in the edit overlay.
func (m *Metrics) SetOverlaySize(n int) {
	m.viewerOverlayOverrides.Set(float64(n))
}

// Store metric helpers

// RecordStoreQuery records a store query with duration.
func (m *Metrics) RecordStoreQuery(operation string, duration float64, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.storeQueryDuration.WithLabelValues(operation).Observe(duration)
	m.storeOperationsTotal.WithLabelValues(operation, status).Inc()
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// RecordSSEConnectionChange records a change in SSE connection count.
func (m *Metrics) RecordSSEConnectionChange(delta float64) {
	m.sseActiveConnections.Add(delta)
}

// RecordSSEEventSent records an SSE event being sent.
func (m *Metrics) RecordSSEEventSent(eventType string) {
	m.sseEventsSent.WithLabelValues(eventType).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(status).Inc()
	m.natsPublishDuration.WithLabelValues(status).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
