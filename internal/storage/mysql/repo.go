// Package mysql implements the run history on MySQL and MariaDB through
// github.com/go-sql-driver/mysql.
package mysql

import (
	"context"
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/ddl"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage"
	"github.com/CMSgov/hpt-validator-sub001/internal/storage/sqldb"

	driver "github.com/go-sql-driver/mysql"
)

// Dialect renders the history schema for MySQL.
var Dialect = ddl.Dialect{
	Name:        "mysql",
	Quote:       ddl.QuoteBacktick,
	Placeholder: ddl.QuestionMark,
	Types: map[ddl.Type]string{
		ddl.TypeID:     "VARCHAR(36)",
		ddl.TypeString: "VARCHAR(255)",
		ddl.TypeText:   "TEXT",
		ddl.TypeInt:    "BIGINT",
		ddl.TypeBool:   "BOOLEAN",
		ddl.TypeTime:   "DATETIME(6)",
	},
}

// newRepository is a test hook that points to NewRepository by default.
var newRepository = NewRepository

// NormalizeDSN parses dsn and forces the options the history tables rely
// on: parseTime so DATETIME scans into time.Time, and UTC.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := driver.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	if cfg.Params == nil {
		cfg.Params = map[string]string{}
	}
	cfg.Params["time_zone"] = "'+00:00'"
	return cfg.FormatDSN(), nil
}

// NewRepository connects to cfg.DSN ("user:pass@tcp(host:3306)/db").
func NewRepository(ctx context.Context, cfg storage.Config) (*sqldb.Repository, error) {
	dsn, err := NormalizeDSN(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sqldb.Open(ctx, "mysql", dsn)
	if err != nil {
		return nil, err
	}
	return sqldb.New(db, Dialect), nil
}

func init() {
	storage.Register("mysql", func(ctx context.Context, cfg storage.Config) (storage.Repository, error) {
		r, err := newRepository(ctx, cfg)
		if err != nil {
			return nil, err
		}
		if cfg.AutoCreate {
			if err := r.EnsureSchema(ctx); err != nil {
				r.Close()
				return nil, fmt.Errorf("mysql: %w", err)
			}
		}
		return r, nil
	})
}
