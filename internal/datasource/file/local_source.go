// Package file opens machine-readable files from the local disk.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local is a source backed by a path on the local filesystem.
type Local struct {
	path string
	name string
}

// NewLocal returns a Local bound to path. Its name is the base name of path.
func NewLocal(path string) *Local { return &Local{path: path, name: filepath.Base(path)} }

// WithName overrides the name used for display and format detection.
func (l *Local) WithName(name string) *Local {
	if name != "" {
		l.name = name
	}
	return l
}

// Name returns the file's base name, e.g. "123456789_hospital_standardcharges.csv".
func (l *Local) Name() string { return l.name }

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the file. A context that is already done short-circuits without
// touching the filesystem. Filesystem errors keep their identity for
// errors.Is (os.ErrNotExist and friends).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}
