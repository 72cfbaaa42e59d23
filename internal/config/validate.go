package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/robfig/cron/v3"
	"golang.org/x/mod/semver"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a finding that is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single lint finding for a Run.
//
// Path is a dotted path into the config (e.g. "storage.kind",
// "sources[1].http.url"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has error severity.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateRun performs static validation of a Run. It does not mutate the
// run and does not check that the schema version is supported; the
// validator reports that itself.
func ValidateRun(r Run) []Issue {
	var issues []Issue

	if strings.TrimSpace(r.Version) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "version",
			Message:  "version must not be empty",
		})
	} else if v := r.Version; !semver.IsValid(ensureV(v)) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "version",
			Message:  fmt.Sprintf("version %q is not a semantic version", v),
		})
	}

	switch strings.ToLower(r.Format) {
	case "", "csv", "json":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "format",
			Message:  fmt.Sprintf("unknown format %q; use csv or json", r.Format),
		})
	}

	issues = append(issues, validateValidator(r.Validator)...)
	if r.Source.Kind != "" {
		issues = append(issues, validateSource("source", r.Source)...)
	}
	for i, s := range r.Sources {
		issues = append(issues, validateSource(fmt.Sprintf("sources[%d]", i), s)...)
	}
	issues = append(issues, validateStorage(r.Storage)...)
	issues = append(issues, validateMetrics(r.Metrics)...)
	issues = append(issues, validateRuntime(r.Runtime)...)

	return issues
}

func ensureV(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

func validateValidator(v ValidatorConfig) []Issue {
	var issues []Issue
	if v.MaxErrors < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "validator.max_errors",
			Message:  "max_errors must not be negative",
		})
	}
	if _, err := v.ReferenceTime(); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "validator.reference_date",
			Message:  fmt.Sprintf("reference_date %q is not YYYY-MM-DD", v.ReferenceDate),
		})
	}
	return issues
}

func validateSource(path string, s Source) []Issue {
	var issues []Issue

	switch s.Kind {
	case "file":
		if strings.TrimSpace(s.File.Path) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".file.path",
				Message:  "file source requires a non-empty path",
			})
		}
	case "http":
		u, err := url.Parse(s.HTTP.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.url",
				Message:  fmt.Sprintf("http source requires an absolute http(s) url, got %q", s.HTTP.URL),
			})
		}
		if _, err := s.HTTP.TimeoutDuration(); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".http.timeout",
				Message:  fmt.Sprintf("timeout %q is not a duration", s.HTTP.Timeout),
			})
		}
		if s.HTTP.InsecureSkipVerify {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path + ".http.insecure_skip_verify",
				Message:  "TLS certificate verification is disabled",
			})
		}
	case "":
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  "source kind must not be empty",
		})
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".kind",
			Message:  fmt.Sprintf("unknown source kind %q; use file or http", s.Kind),
		})
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue
	if s.Kind == "" {
		return nil
	}

	known := map[string]struct{}{
		"postgres": {},
		"mysql":    {},
		"mssql":    {},
		"sqlite":   {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DB.DSN) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "storage.db.dsn",
			Message:  "storage.db.dsn must not be empty",
		})
	}
	return issues
}

func validateMetrics(m Metrics) []Issue {
	switch m.Backend {
	case "", "none", "pushgateway", "prom", "prometheus", "datadog", "dogstatsd":
		return nil
	}
	return []Issue{{
		Severity: SeverityWarning,
		Path:     "metrics.backend",
		Message:  fmt.Sprintf("unknown metrics backend %q; metrics will be disabled", m.Backend),
	}}
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "runtime.workers",
			Message:  "workers must not be negative",
		})
	}
	if r.Schedule != "" {
		if _, err := cron.ParseStandard(r.Schedule); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "runtime.schedule",
				Message:  fmt.Sprintf("invalid cron expression %q: %v", r.Schedule, err),
			})
		}
	}
	if r.Schedule != "" && r.WatchDir != "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "runtime",
			Message:  "both schedule and watch_dir are set; the command line decides which mode runs",
		})
	}
	return issues
}
