// Package storage persists validation run history. Callers work against the
// Repository interface; concrete backends (sqlite, postgres, mssql, mysql)
// register a Factory at init time and are selected by Config.Kind.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Violation kinds stored in the violations table.
const (
	KindError   = "error"
	KindWarning = "warning"
	KindAlert   = "alert"
)

// Run is one validated file.
type Run struct {
	ID          string
	Job         string
	Name        string
	Version     string
	Format      string
	Valid       bool
	Errors      int
	Warnings    int
	Alerts      int
	Rows        int
	Bytes       int64
	Fingerprint string
	StartedAt   time.Time
	Duration    time.Duration

	Violations []Violation
}

// Violation is one stored finding. Seq preserves report order within a run.
type Violation struct {
	Seq     int
	Kind    string
	Path    string
	Field   string
	Message string
}

// Repository stores runs.
type Repository interface {
	// SaveRun writes the run and its violations atomically.
	SaveRun(ctx context.Context, run Run) error
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string

	// AutoCreate creates the history tables when they are missing.
	AutoCreate bool
}

// Factory opens a Repository for cfg.
type Factory func(ctx context.Context, cfg Config) (Repository, error)

// ErrUnsupportedKind is returned by New when no factory is registered.
var ErrUnsupportedKind = errors.New("unsupported storage.kind")

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. Backends call it
// from init.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// New opens the repository registered for cfg.Kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w=%s", ErrUnsupportedKind, cfg.Kind)
	}
	return f(ctx, cfg)
}

// ListKinds returns the registered kinds in sorted order. The slice is a copy.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
