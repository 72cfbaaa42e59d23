// Package sqlite implements the run history on SQLite through the pure-Go
// modernc.org/sqlite driver.
package sqlite

import "github.com/CMSgov/hpt-validator-sub001/internal/ddl"

// Dialect renders the history schema for SQLite. Booleans are stored as
// INTEGER 0/1 and timestamps as TEXT, as the driver does.
var Dialect = ddl.Dialect{
	Name:        "sqlite",
	Quote:       ddl.QuoteDouble,
	Placeholder: ddl.QuestionMark,
	Types: map[ddl.Type]string{
		ddl.TypeID:     "TEXT",
		ddl.TypeString: "TEXT",
		ddl.TypeText:   "TEXT",
		ddl.TypeInt:    "INTEGER",
		ddl.TypeBool:   "INTEGER",
		ddl.TypeTime:   "TIMESTAMP",
	},
}
