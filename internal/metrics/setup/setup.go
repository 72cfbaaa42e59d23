// Package setup builds the metrics backend named by a run configuration.
package setup

import (
	"fmt"
	"log"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics/datadog"
	"github.com/CMSgov/hpt-validator-sub001/internal/metrics/prompush"
)

// Default endpoints used when neither the file nor the environment names one.
const (
	DefaultPushgatewayURL = "http://localhost:9091"
	DefaultDogStatsDAddr  = "127.0.0.1:8125"
)

// New returns the backend selected by m. A nil backend and nil error mean
// metrics are disabled and the nop backend should stay in place.
//
// Recognised options: "url" (pushgateway), "addr", "namespace" and "tags"
// (datadog).
func New(m config.Metrics, job string) (metrics.Backend, error) {
	switch m.Backend {
	case "pushgateway", "prom", "prometheus":
		url := m.Options.String("url", DefaultPushgatewayURL)
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			return nil, err
		}
		log.Printf("metrics: url=%v, backend=%v, job_name=%v", url, m.Backend, job)
		return b, nil

	case "datadog", "dogstatsd":
		addr := m.Options.String("addr", DefaultDogStatsDAddr)
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       addr,
			Namespace:  m.Options.String("namespace", ""),
			GlobalTags: append(m.Options.StringSlice("tags"), "job:"+job),
		})
		if err != nil {
			return nil, err
		}
		log.Printf("metrics: addr=%v, backend=%v, job_name=%v", addr, m.Backend, job)
		return b, nil

	case "", "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("metrics: unknown backend %q", m.Backend)
	}
}

// Install builds the backend for m and installs it globally. Failures are
// logged and leave metrics disabled, matching how a missing backend behaves.
func Install(m config.Metrics, job string) {
	b, err := New(m, job)
	if err != nil {
		log.Printf("metrics: %v; using nop", err)
		return
	}
	if b == nil {
		return
	}
	metrics.SetBackend(b)
}
