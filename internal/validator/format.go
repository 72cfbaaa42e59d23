package validator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// Format is the file format of a machine-readable file.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for formats other than CSV and JSON.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	}
	return "", fmt.Errorf("validator: %w: %q", ErrUnsupportedFormat, s)
}

// DetectFormat picks the format from a file name or URL path extension.
func DetectFormat(name string) (Format, error) {
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	if ext == "" {
		return "", fmt.Errorf("validator: %w: no extension in %q", ErrUnsupportedFormat, name)
	}
	return ParseFormat(ext)
}

// Validate dispatches to ValidateCSV or ValidateJSON.
func Validate(ctx context.Context, r io.Reader, format Format, version string, opts Options) (Result, error) {
	switch format {
	case FormatCSV:
		return ValidateCSV(ctx, r, version, opts)
	case FormatJSON:
		return ValidateJSON(ctx, r, version, opts)
	}
	return Result{}, fmt.Errorf("validator: %w: %q", ErrUnsupportedFormat, format)
}
