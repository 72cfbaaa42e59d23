// Package config defines the run configuration for the validator tools. A
// run names the schema version to validate against, where input comes from,
// where run history is stored and which metrics backend receives counters.
//
// Configuration files are JSON or YAML; both decode into the same struct
// graph. Command-line flags override file values.
//
// Example (trimmed):
//
//	{
//	  "job":       "nightly-mrf",
//	  "version":   "3.0",
//	  "validator": { "max_errors": 1000 },
//	  "source":    { "kind": "http", "http": { "url": "https://example.org/mrf.csv" } },
//	  "storage":   { "kind": "sqlite", "db": { "dsn": "file:runs.db", "auto_create": true } },
//	  "metrics":   { "backend": "pushgateway" },
//	  "runtime":   { "workers": 4, "schedule": "0 3 * * *" }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Run is the top-level object decoded from a configuration file.
type Run struct {
	// Job labels metrics and stored runs.
	Job string `json:"job" yaml:"job"`

	// Version is the schema version every source is validated against
	// ("2.0", "v2.2.0", "3.0").
	Version string `json:"version" yaml:"version"`

	// Format forces "csv" or "json". Empty means detect from the file name.
	Format string `json:"format" yaml:"format"`

	Validator ValidatorConfig `json:"validator" yaml:"validator"`

	// Source is the primary input. Sources lists additional inputs that are
	// validated alongside it (batch and scheduled runs).
	Source  Source   `json:"source" yaml:"source"`
	Sources []Source `json:"sources" yaml:"sources"`

	Storage Storage       `json:"storage" yaml:"storage"`
	Metrics Metrics       `json:"metrics" yaml:"metrics"`
	Runtime RuntimeConfig `json:"runtime" yaml:"runtime"`
}

// AllSources returns Source (when set) followed by Sources.
func (r Run) AllSources() []Source {
	var out []Source
	if r.Source.Kind != "" {
		out = append(out, r.Source)
	}
	return append(out, r.Sources...)
}

// ValidatorConfig tunes the validator itself.
type ValidatorConfig struct {
	// MaxErrors caps collected errors; 0 means unlimited.
	MaxErrors int `json:"max_errors" yaml:"max_errors"`

	// ReferenceDate (YYYY-MM-DD) pins the date used for time-gated rules.
	// Empty means today.
	ReferenceDate string `json:"reference_date" yaml:"reference_date"`

	// LazyQuotes relaxes CSV quote handling.
	LazyQuotes bool `json:"lazy_quotes" yaml:"lazy_quotes"`
}

// ReferenceTime parses ReferenceDate. The zero time is returned when it is
// empty.
func (v ValidatorConfig) ReferenceTime() (time.Time, error) {
	if v.ReferenceDate == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.DateOnly, v.ReferenceDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: reference_date: %w", err)
	}
	return t, nil
}

// Source identifies one input file.
type Source struct {
	// Kind selects the source implementation: "file" or "http".
	Kind string `json:"kind" yaml:"kind"`

	File SourceFile `json:"file" yaml:"file"`
	HTTP SourceHTTP `json:"http" yaml:"http"`

	// Name overrides the display name and format detection name.
	Name string `json:"name" yaml:"name"`
}

// Location is the path or URL the source reads from.
func (s Source) Location() string {
	switch s.Kind {
	case "http":
		return s.HTTP.URL
	default:
		return s.File.Path
	}
}

// SourceFile holds configuration for the "file" source kind.
type SourceFile struct {
	Path string `json:"path" yaml:"path"`
}

// SourceHTTP holds configuration for the "http" source kind.
type SourceHTTP struct {
	URL string `json:"url" yaml:"url"`

	// Timeout is a Go duration string ("30s"). Empty uses the client default.
	Timeout string `json:"timeout" yaml:"timeout"`

	MaxRetries         int  `json:"max_retries" yaml:"max_retries"`
	InsecureSkipVerify bool `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// TimeoutDuration parses Timeout; zero when empty.
func (h SourceHTTP) TimeoutDuration() (time.Duration, error) {
	if h.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(h.Timeout)
	if err != nil {
		return 0, fmt.Errorf("config: http timeout: %w", err)
	}
	return d, nil
}

// Storage selects where run history is persisted. An empty Kind disables
// persistence.
type Storage struct {
	// Kind selects the backend: "sqlite", "postgres", "mssql" or "mysql".
	Kind string   `json:"kind" yaml:"kind"`
	DB   DBConfig `json:"db" yaml:"db"`
}

// DBConfig configures the run history database.
type DBConfig struct {
	// DSN is the driver-specific connection string.
	DSN string `json:"dsn" yaml:"dsn"`

	// AutoCreate creates the history tables when they are missing.
	AutoCreate bool `json:"auto_create" yaml:"auto_create"`
}

// Metrics selects the metrics backend.
type Metrics struct {
	// Backend is "pushgateway", "datadog" or "none". Empty falls back to
	// the METRICS_BACKEND environment variable.
	Backend string `json:"backend" yaml:"backend"`

	// Options carries backend-specific settings ("url", "addr").
	Options Options `json:"options" yaml:"options"`
}

// RuntimeConfig controls batch concurrency and the long-running modes.
type RuntimeConfig struct {
	// Workers bounds how many files are validated at once. Each file is
	// still validated on a single goroutine.
	Workers int `json:"workers" yaml:"workers"`

	// Schedule is a cron expression for periodic re-validation.
	Schedule string `json:"schedule" yaml:"schedule"`

	// WatchDir is a directory whose new CSV/JSON files are validated.
	WatchDir string `json:"watch_dir" yaml:"watch_dir"`
}

// Options is a small helper to fetch typed values from free-form maps with
// minimal coercion. Defaults are returned when a key is absent or of an
// unexpected type. A nil Options is valid and behaves as empty.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers decode as float64
// and YAML integers as int; both are accepted.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of
// strings. Returns nil when the key is missing or not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// UnmarshalJSON decodes a missing or null object to a non-nil, empty
// Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
