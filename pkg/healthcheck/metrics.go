package healthcheck

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HealthMetrics exports health check results to Prometheus
type HealthMetrics struct {
	checksTotal   *prometheus.CounterVec
	checkDuration *prometheus.HistogramVec
	healthStatus  *prometheus.GaugeVec
}

// NewHealthMetrics creates the health check collectors and registers them on reg
func NewHealthMetrics(namespace string, reg prometheus.Registerer) (*HealthMetrics, error) {
	hm := &HealthMetrics{
		checksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "checks_total",
				Help:      "Total number of health checks performed",
			},
			[]string{"check_name", "status"},
		),
		checkDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "check_duration_seconds",
				Help:      "Duration of health checks in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"check_name"},
		),
		healthStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "healthcheck",
				Name:      "status",
				Help:      "Current health status (0=unhealthy, 1=degraded, 2=healthy)",
			},
			[]string{"check_name"},
		),
	}

	for _, c := range []prometheus.Collector{hm.checksTotal, hm.checkDuration, hm.healthStatus} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return hm, nil
}

// RecordCheck records one check execution; name "overall" is the aggregate
func (hm *HealthMetrics) RecordCheck(name string, status Status, duration time.Duration) {
	if hm == nil {
		return
	}
	hm.checksTotal.WithLabelValues(name, string(status)).Inc()
	hm.checkDuration.WithLabelValues(name).Observe(duration.Seconds())
	hm.healthStatus.WithLabelValues(name).Set(statusToFloat(status))
}

func statusToFloat(status Status) float64 {
	switch status {
	case StatusHealthy:
		return 2
	case StatusDegraded:
		return 1
	default:
		return 0
	}
}
