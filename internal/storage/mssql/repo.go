// Package mssql implements the run history on Microsoft SQL Server. Run rows
// use ordinary parameterised INSERTs; violation rows go through the
// go-mssqldb bulk copy API inside the same transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/ddl"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage/sqldb"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
)

// Dialect renders the history schema for SQL Server, which has no
// CREATE TABLE IF NOT EXISTS.
var Dialect = ddl.Dialect{
	Name:        "mssql",
	Quote:       ddl.QuoteBracket,
	Placeholder: ddl.AtP,
	Types: map[ddl.Type]string{
		ddl.TypeID:     "NVARCHAR(36)",
		ddl.TypeString: "NVARCHAR(255)",
		ddl.TypeText:   "NVARCHAR(MAX)",
		ddl.TypeInt:    "BIGINT",
		ddl.TypeBool:   "BIT",
		ddl.TypeTime:   "DATETIME2",
	},
	CreateTable: func(table, stmt string) string {
		return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL %s", table, stmt)
	},
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// NewRepository validates the DSN, connects and returns a Repository.
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sqldb.Open(ctx, "sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	return sqldb.New(db, Dialect, sqldb.WithBulk(bulkCopy)), nil
}

// bulkCopy streams rows into the violations table with mssql.CopyIn.
func bulkCopy(ctx context.Context, tx *sql.Tx, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(storage.ViolationsTable, mssql.BulkOptions{}, columns...))
	if err != nil {
		return 0, fmt.Errorf("prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("bulk finalize: %w", err)
	}
	return res.RowsAffected()
}

func init() {
	storage.Register("mssql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoCreate {
			if err := r.EnsureSchema(ctx); err != nil {
				r.Close()
				return nil, fmt.Errorf("mssql: %w", err)
			}
		}
		return r, nil
	})
}
