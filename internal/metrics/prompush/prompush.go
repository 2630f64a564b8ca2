// Package prompush pushes metrics to a Prometheus Pushgateway. Every metric
// name known to the metrics package maps to one collector on a private
// registry; Flush replaces the job's group on the gateway with its contents.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"tabular/internal/metrics"
)

// durationBuckets span 10ms to ~160s.
var durationBuckets = prometheus.ExponentialBuckets(0.01, 4, 8)

// Backend is a Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	counters   map[string]labeled[*prometheus.CounterVec]
	histograms map[string]labeled[*prometheus.HistogramVec]
}

// labeled pairs a vector with the label order it was declared with.
type labeled[V any] struct {
	vec    V
	labels []string
}

func (l labeled[V]) values(lbls metrics.Labels) []string {
	out := make([]string, len(l.labels))
	for i, k := range l.labels {
		out[i] = lbls[k]
	}
	return out
}

// NewBackend registers the tabular collectors. jobName groups the pushed
// metrics and defaults to "tabular".
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "tabular"
	}
	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		counters:   map[string]labeled[*prometheus.CounterVec]{},
		histograms: map[string]labeled[*prometheus.HistogramVec]{},
	}

	taskLabels := []string{"task", "status"}
	if err := b.counter(metrics.TaskTotal, "Validated tasks by task and status.", taskLabels); err != nil {
		return nil, err
	}
	if err := b.counter(metrics.RowsTotal, "Rows by kind (read, invalid).", []string{"kind"}); err != nil {
		return nil, err
	}
	if err := b.histogram(metrics.TaskDurationSeconds, "Task validation time in seconds.", taskLabels); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) counter(name, help string, labels []string) error {
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	if err := b.reg.Register(vec); err != nil {
		return fmt.Errorf("prompush: register %s: %w", name, err)
	}
	b.counters[name] = labeled[*prometheus.CounterVec]{vec, labels}
	return nil
}

func (b *Backend) histogram(name, help string, labels []string) error {
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: name, Help: help, Buckets: durationBuckets}, labels)
	if err := b.reg.Register(vec); err != nil {
		return fmt.Errorf("prompush: register %s: %w", name, err)
	}
	b.histograms[name] = labeled[*prometheus.HistogramVec]{vec, labels}
	return nil
}

// IncCounter adds delta to a known counter. Unknown names and negative
// deltas are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	c, ok := b.counters[name]
	if !ok || delta < 0 {
		return
	}
	c.vec.WithLabelValues(c.values(labels)...).Add(delta)
}

// ObserveHistogram records value on a known histogram.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	h, ok := b.histograms[name]
	if !ok {
		return
	}
	h.vec.WithLabelValues(h.values(labels)...).Observe(value)
}

// Flush pushes the registry, replacing the job's previous group.
func (b *Backend) Flush() error {
	if err := push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push(); err != nil {
		return fmt.Errorf("prompush: push to %s: %w", b.gatewayURL, err)
	}
	return nil
}
