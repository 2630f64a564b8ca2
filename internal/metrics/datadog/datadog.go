// Package datadog sends metrics to a DogStatsD agent. Labels become
// "key:value" tags and duration observations are sent as distributions so
// percentiles aggregate across hosts.
package datadog

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"tabular/internal/metrics"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is "host:port" or "unix:///path/to/socket".
	Addr string
	// Namespace prefixes every metric name, e.g. "tabular.".
	Namespace string
	// GlobalTags go on every metric, e.g. "env:prod".
	GlobalTags []string
}

// Backend implements metrics.Backend over a statsd client.
type Backend struct {
	client statsd.ClientInterface
}

// NewBackend dials the agent. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("datadog: Addr is required")
	}
	var opts []statsd.Option
	if cfg.Namespace != "" {
		opts = append(opts, statsd.WithNamespace(cfg.Namespace))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: create client: %w", err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a count. Fractional deltas are rounded.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(math.Round(delta)), labelsToTags(labels), 1)
}

// ObserveHistogram sends a distribution sample.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Distribution(metricName(name), value, labelsToTags(labels), 1)
}

// Flush sends buffered payloads.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Flush()
}

// Close flushes and releases the client.
func (b *Backend) Close() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// metricName turns "tabular_rows_total" into "tabular.rows.total", the
// dotted form Datadog groups by.
func metricName(name string) string {
	return strings.ReplaceAll(name, "_", ".")
}

// labelsToTags renders sorted "key:value" tags, dropping empty values.
func labelsToTags(lbls metrics.Labels) []string {
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		if v != "" {
			out = append(out, k+":"+v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	slices.Sort(out)
	return out
}
