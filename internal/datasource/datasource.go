// Package datasource abstracts where a machine-readable file comes from. The
// validator only needs a name (for format detection and reporting) and a
// stream to read once.
package datasource

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/CMSgov/hpt-validator-sub001/internal/config"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource/file"
	"github.com/CMSgov/hpt-validator-sub001/internal/datasource/httpds"
)

// Source is one input file.
type Source interface {
	Name() string
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FromConfig builds the Source described by cfg.
func FromConfig(cfg config.Source) (Source, error) {
	switch strings.ToLower(cfg.Kind) {
	case "file", "":
		if cfg.File.Path == "" {
			return nil, fmt.Errorf("datasource: file source requires file.path")
		}
		return file.NewLocal(cfg.File.Path).WithName(cfg.Name), nil
	case "http", "https":
		if cfg.HTTP.URL == "" {
			return nil, fmt.Errorf("datasource: http source requires http.url")
		}
		timeout, err := cfg.HTTP.TimeoutDuration()
		if err != nil {
			return nil, fmt.Errorf("datasource: %w", err)
		}
		client := httpds.NewClient(httpds.Config{
			Timeout:            timeout,
			MaxRetries:         cfg.HTTP.MaxRetries,
			InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		})
		return httpds.NewSource(client, cfg.HTTP.URL).WithName(cfg.Name), nil
	default:
		return nil, fmt.Errorf("datasource: unsupported source.kind=%s", cfg.Kind)
	}
}

// Resolve turns a command-line argument into a source config: http(s) URLs
// become "http" sources and anything else a "file" source.
func Resolve(arg string) config.Source {
	lower := strings.ToLower(arg)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: arg}}
	}
	return config.Source{Kind: "file", File: config.SourceFile{Path: arg}}
}
