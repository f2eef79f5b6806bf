package ports

import (
	"errors"
	"time"
)

// Common infrastructure errors surfaced by store implementations.
var (
	// ErrNotFound indicates that a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrLockTimeout indicates bounded lock acquisition expired. Stores wrap
	// it in a domain ConcurrentModificationError before returning.
	ErrLockTimeout = errors.New("lock acquisition timed out")
)

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an engine operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric, e.g. draws generated,
	// ballots confirmed, lock contention losses.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric, e.g. unfilled
	// panels after an allocation pass.
	RecordGauge(metric string, value float64, labels map[string]string)
}
