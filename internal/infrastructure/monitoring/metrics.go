package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Cache lookup results
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// MetricsCollector handles Prometheus metrics collection
type MetricsCollector struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	// HTTP metrics
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Shopping list metrics
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	linesAffected     *prometheus.HistogramVec
	saveConflicts     prometheus.Counter
	cacheOperations   *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
}

// NewMetricsCollector creates a collector backed by its own registry, which
// also carries the Go runtime and process collectors
func NewMetricsCollector(logger *zap.Logger) *MetricsCollector {
	m := &MetricsCollector{
		logger:   logger.Named("metrics"),
		registry: prometheus.NewRegistry(),

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),

		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "operations_total",
				Help:      "Shopping list operations by name and outcome",
			},
			[]string{"operation", "status"},
		),
		operationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "operation_duration_seconds",
				Help:      "Shopping list operation latency",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"operation"},
		),
		linesAffected: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "lines_affected",
				Help:      "Number of shopping lines touched by one mutation",
				Buckets:   prometheus.LinearBuckets(0, 5, 10),
			},
			[]string{"operation"},
		),
		saveConflicts: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "save_conflicts_total",
				Help:      "Optimistic version conflicts while saving lists",
			},
		),
		cacheOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "cache_lookups_total",
				Help:      "Shopping list cache lookups by result",
			},
			[]string{"result"},
		),
		eventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "mealplan",
				Subsystem: "shopping",
				Name:      "events_published_total",
				Help:      "Domain events handed to the message bus by outcome",
			},
			[]string{"event", "status"},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.operationsTotal,
		m.operationDuration,
		m.linesAffected,
		m.saveConflicts,
		m.cacheOperations,
		m.eventsPublished,
	)

	return m
}

// Registerer exposes the collector's registry so other components, such as
// the database query monitor, can add their own metrics
func (m *MetricsCollector) Registerer() prometheus.Registerer {
	return m.registry
}

// HTTPMiddleware creates a Gin middleware for HTTP metrics collection
func (m *MetricsCollector) HTTPMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		statusCode := strconv.Itoa(c.Writer.Status())

		m.httpRequestsTotal.WithLabelValues(c.Request.Method, path, statusCode).Inc()
		m.httpRequestDuration.WithLabelValues(c.Request.Method, path, statusCode).
			Observe(time.Since(start).Seconds())
	}
}

// ObserveOperation records one shopping list operation
func (m *MetricsCollector) ObserveOperation(operation string, err error, duration time.Duration, affected int) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
	m.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err == nil && affected >= 0 {
		m.linesAffected.WithLabelValues(operation).Observe(float64(affected))
	}
}

// SaveConflict counts an optimistic locking conflict
func (m *MetricsCollector) SaveConflict() {
	m.saveConflicts.Inc()
}

// CacheLookup counts a cache lookup by result
func (m *MetricsCollector) CacheLookup(result string) {
	m.cacheOperations.WithLabelValues(result).Inc()
}

// EventPublished counts a published or failed domain event
func (m *MetricsCollector) EventPublished(event string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.eventsPublished.WithLabelValues(event, status).Inc()
}

// Handler returns the Prometheus metrics HTTP handler
func (m *MetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog: zap.NewStdLog(m.logger),
	})
}
