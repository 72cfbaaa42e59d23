// Package datadog sends validation metrics to a DogStatsD agent.
//
// Metric names follow Datadog's dotted convention: the Prometheus style
// names from package metrics lose their "hpt_" prefix and unit suffix, so
// hpt_validation_duration_seconds becomes "<namespace>validation.duration".
// Labels become sorted "key:value" tags.
package datadog

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"

	"github.com/DataDog/datadog-go/v5/statsd"
)

// DefaultNamespace prefixes every metric when Config.Namespace is empty.
const DefaultNamespace = "hpt."

// Config holds the agent address and naming options.
type Config struct {
	// Addr is "host:port" for UDP or "unix:///path/to/dsd.socket".
	Addr string

	// Namespace prefixes metric names (default "hpt.").
	Namespace string

	// GlobalTags are attached to everything this backend sends, e.g.
	// "env:prod" or "job:nightly".
	GlobalTags []string
}

// statsdClient is the subset of *statsd.Client the backend uses.
type statsdClient interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Flush() error
	Close() error
}

// Backend implements metrics.Backend over DogStatsD.
type Backend struct {
	client statsdClient
}

// NewBackend dials the agent described by cfg. Addr is required.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("datadog: addr is required")
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	opts := []statsd.Option{statsd.WithNamespace(ns)}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}
	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return &Backend{client: c}, nil
}

// IncCounter sends a count. DogStatsD counts are integers, so fractional
// deltas are rounded down.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Count(metricName(name), int64(delta), tags(labels), 1)
}

// ObserveHistogram sends a distribution so percentiles aggregate across
// every host running the validator.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Distribution(metricName(name), value, tags(labels), 1)
}

// Flush empties the client buffer. The client stays open for the next
// watch or schedule pass.
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

// metricName maps "hpt_rows_total" to "rows" and
// "hpt_validation_duration_seconds" to "validation.duration".
func metricName(name string) string {
	name = strings.TrimPrefix(name, "hpt_")
	for _, unit := range []string{"_total", "_seconds"} {
		name = strings.TrimSuffix(name, unit)
	}
	return strings.ReplaceAll(name, "_", ".")
}

func tags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		if v == "" {
			continue
		}
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
