package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const queryStartKey = "query_monitor:start"

// QueryMonitor records the duration and outcome of every GORM statement
type QueryMonitor struct {
	logger        *zap.Logger
	slowThreshold time.Duration
	duration      *prometheus.HistogramVec
	errors        *prometheus.CounterVec
}

// NewQueryMonitor creates a query monitor and registers its metrics
func NewQueryMonitor(logger *zap.Logger, registerer prometheus.Registerer, slowThreshold time.Duration) (*QueryMonitor, error) {
	qm := &QueryMonitor{
		logger:        logger.Named("query-monitor"),
		slowThreshold: slowThreshold,
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "mealplan",
			Subsystem: "db",
			Name:      "query_duration_seconds",
			Help:      "Duration of database statements by operation and table",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation", "table"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mealplan",
			Subsystem: "db",
			Name:      "query_errors_total",
			Help:      "Failed database statements by operation and table",
		}, []string{"operation", "table"}),
	}

	for _, c := range []prometheus.Collector{qm.duration, qm.errors} {
		if err := registerer.Register(c); err != nil {
			return nil, fmt.Errorf("failed to register query metrics: %w", err)
		}
	}

	return qm, nil
}

// Install registers before/after callbacks for every statement type
func (qm *QueryMonitor) Install(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		name      string
		operation string
		before    func(name string, fn func(*gorm.DB)) error
		after     func(name string, fn func(*gorm.DB)) error
	}{
		{"gorm:query", "select", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"gorm:create", "insert", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"gorm:update", "update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"gorm:delete", "delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"gorm:row", "row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"gorm:raw", "raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before("monitor:before_"+h.operation, qm.before); err != nil {
			return fmt.Errorf("failed to register %s monitor: %w", h.name, err)
		}
		if err := h.after("monitor:after_"+h.operation, qm.afterFor(h.operation)); err != nil {
			return fmt.Errorf("failed to register %s monitor: %w", h.name, err)
		}
	}

	return nil
}

func (qm *QueryMonitor) before(db *gorm.DB) {
	db.InstanceSet(queryStartKey, time.Now())
}

func (qm *QueryMonitor) afterFor(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		value, ok := db.InstanceGet(queryStartKey)
		if !ok {
			return
		}
		start, ok := value.(time.Time)
		if !ok {
			return
		}

		table := "unknown"
		if db.Statement != nil && db.Statement.Table != "" {
			table = db.Statement.Table
		}
		elapsed := time.Since(start)

		qm.duration.WithLabelValues(operation, table).Observe(elapsed.Seconds())
		if db.Error != nil && db.Error != gorm.ErrRecordNotFound {
			qm.errors.WithLabelValues(operation, table).Inc()
		}

		if qm.slowThreshold > 0 && elapsed > qm.slowThreshold {
			qm.logger.Warn("slow query",
				zap.String("operation", operation),
				zap.String("table", table),
				zap.Duration("duration", elapsed),
			)
		}
	}
}

// GORMLogWriter implements GORM's Writer interface for query logging
type GORMLogWriter struct {
	logger *zap.Logger
}

// NewGORMLogWriter creates a GORM log writer backed by zap
func NewGORMLogWriter(logger *zap.Logger) *GORMLogWriter {
	return &GORMLogWriter{logger: logger.Named("gorm")}
}

// Printf implements the Writer interface
func (w *GORMLogWriter) Printf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)

	// Log based on content
	switch {
	case strings.Contains(msg, "SLOW SQL"):
		w.logger.Warn("GORM slow query", zap.String("message", msg))
	case strings.Contains(msg, "error"), strings.Contains(msg, "ERROR"):
		w.logger.Error("GORM error", zap.String("message", msg))
	default:
		w.logger.Debug("GORM log", zap.String("message", msg))
	}
}
