package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a run configuration from path. Files ending in .yaml or .yml
// are decoded as YAML; everything else as JSON. Unknown JSON fields are
// rejected so that typos surface early.
func Load(path string) (Run, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Run{}, fmt.Errorf("config: read %q: %w", path, err)
	}
	r, err := Decode(data, filepath.Ext(path))
	if err != nil {
		return Run{}, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return r, nil
}

// Decode decodes data according to ext (".json", ".yaml", ".yml").
func Decode(data []byte, ext string) (Run, error) {
	var r Run
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &r); err != nil {
			return Run{}, err
		}
	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&r); err != nil {
			return Run{}, err
		}
	}
	ApplyDefaults(&r)
	return r, nil
}

// ApplyDefaults fills zero values that have a sensible default.
func ApplyDefaults(r *Run) {
	if r.Job == "" {
		r.Job = "hptvalidate"
	}
	if r.Runtime.Workers <= 0 {
		r.Runtime.Workers = 1
	}
	if r.Metrics.Options == nil {
		r.Metrics.Options = Options{}
	}
}

// ApplyEnv fills metrics settings left empty by the file from the
// environment: METRICS_BACKEND, PUSHGATEWAY_URL and DD_AGENT_ADDR. File
// values always win.
func ApplyEnv(r *Run) {
	if r.Metrics.Backend == "" {
		r.Metrics.Backend = strings.ToLower(os.Getenv("METRICS_BACKEND"))
	}
	if r.Metrics.Options == nil {
		r.Metrics.Options = Options{}
	}
	setIfEmpty := func(key, env string) {
		if r.Metrics.Options.String(key, "") != "" {
			return
		}
		if v := os.Getenv(env); v != "" {
			r.Metrics.Options[key] = v
		}
	}
	switch r.Metrics.Backend {
	case "pushgateway", "prom", "prometheus":
		setIfEmpty("url", "PUSHGATEWAY_URL")
	case "datadog", "dogstatsd":
		setIfEmpty("addr", "DD_AGENT_ADDR")
	}
}
