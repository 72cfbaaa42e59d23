// Package sqldb implements storage.Repository on database/sql. The SQLite,
// MySQL and SQL Server backends share it and differ only in their Dialect
// and, for SQL Server, the bulk path used for violation rows.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/CMSgov/hpt-validator-sub001/internal/ddl"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
)

// BulkFn inserts violation rows inside tx. It replaces the default prepared
// INSERT loop.
type BulkFn func(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error)

// Repository is a database/sql-backed storage.Repository.
type Repository struct {
	db      *sql.DB
	dialect ddl.Dialect
	bulk    BulkFn

	runSQL       string
	violationSQL string
}

// Option customises a Repository.
type Option func(*Repository)

// WithBulk installs a backend-specific bulk insert for violations.
func WithBulk(fn BulkFn) Option { return func(r *Repository) { r.bulk = fn } }

// Open opens driver/dsn and pings it so that a bad DSN fails fast.
func Open(ctx context.Context, driver, dsn string) (*sql.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", driver, err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", driver, err)
	}
	return db, nil
}

// New wraps an open database.
func New(db *sql.DB, d ddl.Dialect, opts ...Option) *Repository {
	r := &Repository{
		db:           db,
		dialect:      d,
		runSQL:       ddl.BuildInsertSQL(storage.Runs, d),
		violationSQL: ddl.BuildInsertSQL(storage.Violations, d),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// DB exposes the underlying handle for queries outside the Repository
// contract.
func (r *Repository) DB() *sql.DB { return r.db }

// Exec executes a single statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, stmt string) error {
	if strings.TrimSpace(stmt) == "" {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: exec: %w", r.dialect.Name, err)
	}
	return nil
}

// EnsureSchema creates the history tables when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return storage.EnsureSchema(ctx, r, r.dialect)
}

// SaveRun inserts the run row and its violations in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run storage.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", r.dialect.Name, err)
	}
	rollback := func() { _ = tx.Rollback() }

	if _, err := tx.ExecContext(ctx, r.runSQL, storage.RunValues(run)...); err != nil {
		rollback()
		return fmt.Errorf("%s: insert run: %w", r.dialect.Name, err)
	}

	if rows := storage.ViolationRows(run); len(rows) > 0 {
		cols := storage.Violations.ColumnNames()
		if r.bulk != nil {
			_, err = r.bulk(ctx, tx, cols, rows)
		} else {
			err = r.insertViolations(ctx, tx, cols, rows)
		}
		if err != nil {
			rollback()
			return fmt.Errorf("%s: insert violations: %w", r.dialect.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", r.dialect.Name, err)
	}
	return nil
}

func (r *Repository) insertViolations(ctx context.Context, tx *sql.Tx, cols []string, rows [][]any) error {
	stmt, err := tx.PrepareContext(ctx, r.violationSQL)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	_, err = storage.CopyBatches(ctx, cols, rows, storage.DefaultBatchSize,
		func(ctx context.Context, _ []string, batch [][]any) (int64, error) {
			var n int64
			for _, row := range batch {
				if _, err := stmt.ExecContext(ctx, row...); err != nil {
					return n, err
				}
				n++
			}
			return n, nil
		}, false)
	return err
}

// Close closes the database handle.
func (r *Repository) Close() { _ = r.db.Close() }

// CountRuns returns the number of stored runs. It backs health checks and
// tests.
func (r *Repository) CountRuns(ctx context.Context) (int, error) {
	var n int
	q := "SELECT COUNT(*) FROM " + r.dialect.Quote(storage.RunsTable)
	if err := r.db.QueryRowContext(ctx, q).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count runs: %w", r.dialect.Name, err)
	}
	return n, nil
}
