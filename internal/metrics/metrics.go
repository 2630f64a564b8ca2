// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from resource validation and loading.
//
// It exposes a narrow interface (Backend) focused on counters and timing data
// and a global, pluggable backend that defaults to a no-op implementation, so
// metrics are always safe to call even when no real backend is configured.
// Concrete metric systems live in subpackages (prompush, datadog).
package metrics

import (
	"sync"
	"time"
)

// Metric names shared by every backend.
const (
	TaskTotal           = "tabular_task_total"
	TaskDurationSeconds = "tabular_task_duration_seconds"
	RowsTotal           = "tabular_rows_total"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(name string, delta float64, labels Labels)       {}
func (nopBackend) ObserveHistogram(name string, value float64, labels Labels) {}
func (nopBackend) Flush() error                                               { return nil }

var (
	mu      sync.RWMutex
	backend Backend = nopBackend{}
)

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	mu.Lock()
	backend = b
	mu.Unlock()
}

func current() Backend {
	mu.RLock()
	defer mu.RUnlock()
	return backend
}

// Flush delegates to the current backend.
func Flush() error {
	return current().Flush()
}

// RecordTask counts one validated task and records its duration. status is
// "valid", "invalid" or "error".
func RecordTask(job, task, status string, d time.Duration) {
	lbls := Labels{
		"job":    job,
		"task":   task,
		"status": status,
	}
	b := current()
	b.IncCounter(TaskTotal, 1, lbls)
	b.ObserveHistogram(TaskDurationSeconds, d.Seconds(), lbls)
}

// RecordRows adds delta to the row counter of job. kind is "read" or
// "invalid".
func RecordRows(job, kind string, delta int64) {
	if delta <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}
