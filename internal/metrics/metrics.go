// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from validation runs.
//
// The package exposes a narrow Backend interface (counters and timings) and a
// global, pluggable backend that defaults to a no-op implementation, so the
// Record helpers are always safe to call even when no real backend is
// configured. Concrete metric systems live in subpackages (prompush, datadog)
// and are installed with SetBackend.
package metrics

import (
	"sync"
	"time"
)

// Metric names emitted by the Record helpers.
const (
	ValidationTotal    = "hpt_validation_total"
	ValidationDuration = "hpt_validation_duration_seconds"
	ViolationsTotal    = "hpt_violations_total"
	RowsTotal          = "hpt_rows_total"
)

// Outcome label values for ValidationTotal and ValidationDuration.
const (
	OutcomeValid   = "valid"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
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

// Outcome maps a validation result onto an outcome label. An operational
// error wins over validity.
func Outcome(valid bool, err error) string {
	switch {
	case err != nil:
		return OutcomeError
	case valid:
		return OutcomeValid
	default:
		return OutcomeInvalid
	}
}

// RecordValidation counts one validated file and observes how long it took.
func RecordValidation(job, format, version string, valid bool, err error, d time.Duration) {
	b := current()
	outcome := Outcome(valid, err)
	b.IncCounter(ValidationTotal, 1, Labels{
		"job":     job,
		"format":  format,
		"version": version,
		"outcome": outcome,
	})
	b.ObserveHistogram(ValidationDuration, d.Seconds(), Labels{
		"job":     job,
		"format":  format,
		"outcome": outcome,
	})
}

// RecordViolations adds the error, warning and alert counts of one result.
// Zero counts are skipped.
func RecordViolations(job string, errors, warnings, alerts int) {
	b := current()
	for _, kv := range []struct {
		kind string
		n    int
	}{{"error", errors}, {"warning", warnings}, {"alert", alerts}} {
		if kv.n <= 0 {
			continue
		}
		b.IncCounter(ViolationsTotal, float64(kv.n), Labels{"job": job, "kind": kv.kind})
	}
}

// RecordRows increments the evaluated-row counter for job.
func RecordRows(job string, n int64) {
	if n <= 0 {
		return
	}
	current().IncCounter(RowsTotal, float64(n), Labels{"job": job})
}
