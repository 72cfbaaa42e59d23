// Package postgres implements the run history on Postgres using pgx v5. The
// run row is a plain INSERT; violation rows are loaded with COPY in batches,
// all inside one transaction.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/ddl"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Dialect renders the history schema for Postgres.
var Dialect = ddl.Dialect{
	Name:        "postgres",
	Quote:       ddl.QuoteDouble,
	Placeholder: ddl.Dollar,
	Types: map[ddl.Type]string{
		ddl.TypeID:     "TEXT",
		ddl.TypeString: "TEXT",
		ddl.TypeText:   "TEXT",
		ddl.TypeInt:    "BIGINT",
		ddl.TypeBool:   "BOOLEAN",
		ddl.TypeTime:   "TIMESTAMPTZ",
	},
}

// pool is the subset of *pgxpool.Pool the repository uses.
type pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Close()
}

// Repository is a Postgres-backed storage.Repository.
type Repository struct {
	pool      pool
	batchSize int
	verbose   bool
	runSQL    string
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// NewRepository connects a pgx pool to cfg.DSN.
func NewRepository(ctx context.Context, cfg storage.Config) (*Repository, error) {
	p, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	return newWithPool(p), nil
}

func newWithPool(p pool) *Repository {
	return &Repository{
		pool:      p,
		batchSize: storage.DefaultBatchSize,
		runSQL:    ddl.BuildInsertSQL(storage.Runs, Dialect),
	}
}

// Exec executes a single statement (typically DDL).
func (r *Repository) Exec(ctx context.Context, sql string) error {
	if _, err := r.pool.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: exec: %w", err)
	}
	return nil
}

// EnsureSchema creates the history tables when they are missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	return storage.EnsureSchema(ctx, r, Dialect)
}

// SaveRun inserts the run row and COPYs its violations in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run storage.Run) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, r.runSQL, storage.RunValues(run)...); err != nil {
		return fmt.Errorf("postgres: insert run: %w", pgDetail(err))
	}

	rows := storage.ViolationRows(run)
	_, err = storage.CopyBatches(ctx, storage.Violations.ColumnNames(), rows, r.batchSize,
		func(ctx context.Context, cols []string, batch [][]any) (int64, error) {
			return tx.CopyFrom(ctx, pgx.Identifier{storage.ViolationsTable}, cols, pgx.CopyFromRows(batch))
		}, r.verbose)
	if err != nil {
		return fmt.Errorf("postgres: copy violations: %w", pgDetail(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

// Close closes the pool.
func (r *Repository) Close() { r.pool.Close() }

// pgDetail surfaces the server's detail text, which pgx leaves out of Error().
func pgDetail(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Detail != "" {
		return fmt.Errorf("%w (%s)", err, pgErr.Detail)
	}
	return err
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoCreate {
			if err := r.EnsureSchema(ctx); err != nil {
				r.Close()
				return nil, fmt.Errorf("postgres: %w", err)
			}
		}
		return r, nil
	})
}
