// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// Validation runs are short-lived batch jobs, so instead of exposing a scrape
// endpoint the backend keeps its own registry and pushes it to a Pushgateway
// on Flush. The Pushgateway "job" grouping key carries the job label; the
// remaining labels map onto CounterVec and SummaryVec dimensions.
package prompush

import (
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string // e.g. http://pushgateway:9091
	jobName    string // Pushgateway "job" group
	reg        *prometheus.Registry

	validations *prometheus.CounterVec // hpt_validation_total
	duration    *prometheus.SummaryVec // hpt_validation_duration_seconds
	violations  *prometheus.CounterVec // hpt_violations_total
	rows        prometheus.Counter     // hpt_rows_total
}

// NewBackend constructs a Prometheus Pushgateway backend.
// jobName: the Pushgateway "job" name (usually the run's job).
// gatewayURL: base URL of the Pushgateway server.
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "hptvalidate"
	}

	reg := prometheus.NewRegistry()

	validations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ValidationTotal,
			Help: "Validated files, partitioned by format, schema version and outcome.",
		},
		[]string{"format", "version", "outcome"},
	)
	duration := prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       metrics.ValidationDuration,
			Help:       "Wall time spent validating one file, in seconds.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"format", "outcome"},
	)
	violations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: metrics.ViolationsTotal,
			Help: "Reported findings per kind (error, warning, alert).",
		},
		[]string{"kind"},
	)
	rows := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metrics.RowsTotal,
			Help: "Data rows or standard charge items evaluated.",
		},
	)

	for _, c := range []struct {
		what string
		c    prometheus.Collector
	}{
		{"validation counter", validations},
		{"duration summary", duration},
		{"violation counter", violations},
		{"row counter", rows},
	} {
		if err := reg.Register(c.c); err != nil {
			return nil, fmt.Errorf("prompush: register %s: %w", c.what, err)
		}
	}

	return &Backend{
		gatewayURL:  gatewayURL,
		jobName:     jobName,
		reg:         reg,
		validations: validations,
		duration:    duration,
		violations:  violations,
		rows:        rows,
	}, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.ValidationTotal:
		if b.validations == nil {
			return
		}
		b.validations.WithLabelValues(labels["format"], labels["version"], labels["outcome"]).Add(delta)

	case metrics.ViolationsTotal:
		if b.violations == nil {
			return
		}
		b.violations.WithLabelValues(labels["kind"]).Add(delta)

	case metrics.RowsTotal:
		if b.rows == nil {
			return
		}
		b.rows.Add(delta)

	default:
		// unknown metric name: ignore
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.ValidationDuration || b.duration == nil {
		return
	}
	b.duration.WithLabelValues(labels["format"], labels["outcome"]).Observe(value)
}

// Flush pushes the current registry to the Pushgateway.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).
		Gatherer(b.reg).
		Push()
}
