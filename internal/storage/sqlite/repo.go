package sqlite

import (
	"context"

	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage/sqldb"

	_ "modernc.org/sqlite"
)

// NewRepository opens cfg.DSN, for example "file:runs.db" or ":memory:".
// SQLite allows one writer, so the pool is limited to one connection; this
// also keeps ":memory:" databases on a single connection.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	db, err := sqldb.Open(ctx, "sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	_, _ = db.ExecContext(ctx, "PRAGMA foreign_keys = ON;")
	_, _ = db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;")

	return sqldb.New(db, Dialect), nil
}
