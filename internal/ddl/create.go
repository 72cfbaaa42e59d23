// Package ddl renders the CREATE TABLE and INSERT statements used by the run
// history backends from a small, dialect-neutral table model.
//
// A TableDef names columns with logical types; a Dialect supplies identifier
// quoting, bind placeholders and the concrete SQL types. The same table
// definitions therefore produce matching schemas on SQLite, Postgres, SQL
// Server and MySQL.
package ddl

import (
	"fmt"
	"strings"
)

// BuildCreateTableSQL renders an idempotent CREATE TABLE statement:
//
//	CREATE TABLE IF NOT EXISTS <table> (
//	  <col> <type> [NOT NULL],
//	  ...,
//	  [PRIMARY KEY (<pk-cols>)]
//	);
//
// Dialects without IF NOT EXISTS provide Dialect.CreateTable to guard the
// bare statement instead.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return "", fmt.Errorf("ddl: table name must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns)+1)
	var pks []string
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", name)
		}
		typ, ok := d.Types[c.Type]
		if !ok {
			return "", fmt.Errorf("ddl: %s: no SQL type for column %s", d.Name, c.Name)
		}

		def := d.Quote(c.Name) + " " + typ
		if !c.Nullable {
			def += " NOT NULL"
		}
		cols = append(cols, def)
		if c.PrimaryKey {
			pks = append(pks, d.Quote(c.Name))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	body := fmt.Sprintf("(\n  %s\n)", strings.Join(cols, ",\n  "))
	if d.CreateTable != nil {
		return d.CreateTable(name, fmt.Sprintf("CREATE TABLE %s %s", d.Quote(name), body)), nil
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s %s;", d.Quote(name), body), nil
}

// BuildInsertSQL renders a single-row INSERT for every column of t.
func BuildInsertSQL(t TableDef, d Dialect) string {
	names := make([]string, len(t.Columns))
	params := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = d.Quote(c.Name)
		params[i] = d.Placeholder(i + 1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		d.Quote(t.Name), strings.Join(names, ", "), strings.Join(params, ", "))
}

// QuoteDouble quotes an identifier with double quotes (SQLite, Postgres).
func QuoteDouble(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// QuoteBracket quotes an identifier with [brackets] (SQL Server).
func QuoteBracket(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// QuoteBacktick quotes an identifier with backticks (MySQL).
func QuoteBacktick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// QuestionMark is the positional placeholder used by SQLite and MySQL.
func QuestionMark(int) string { return "?" }

// Dollar is the numbered placeholder used by Postgres.
func Dollar(n int) string { return fmt.Sprintf("$%d", n) }

// AtP is the numbered placeholder used by SQL Server.
func AtP(n int) string { return fmt.Sprintf("@p%d", n) }
