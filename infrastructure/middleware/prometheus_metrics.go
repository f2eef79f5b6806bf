// Package middleware provides cross-cutting concerns for the draw engine:
// metrics collection and policy tracing.
package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/andreesc15/tabbycat/internal/ports"
)

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// PrometheusMetrics implements the MetricsCollector interface using
// Prometheus. It provides real-time monitoring of engine operation latency,
// draw and ballot throughput, and allocation quality.
type PrometheusMetrics struct {
	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
}

// NewPrometheusMetrics creates a PrometheusMetrics instance and registers
// all required metrics in the global Prometheus registry.
func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		operationLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "draw_engine_operation_duration_seconds",
				Help:    "Execution time of draw engine operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "status"},
		),
		operationCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "draw_engine_events_total",
				Help: "Total engine events: draws generated, ballots confirmed, contention losses.",
			},
			[]string{"metric"},
		),
		systemGauges: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "draw_engine_state",
				Help: "Current engine state values, e.g. unfilled panels after allocation.",
			},
			[]string{"metric"},
		),
	}
}

// RecordLatency records operation latency in a Prometheus histogram.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	status, ok := labels["status"]
	if !ok {
		status = "unknown"
	}
	pm.operationLatency.WithLabelValues(operation, status).Observe(duration.Seconds())
}

// RecordCounter increments an engine event counter.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	pm.operationCounter.WithLabelValues(metric).Add(value)
}

// RecordGauge sets an engine state gauge.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	pm.systemGauges.WithLabelValues(metric).Set(value)
}
