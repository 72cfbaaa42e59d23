package storage

import (
	"context"
	"fmt"

	"github.com/CMSgov/hpt-validator-sub001/internal/ddl"
)

// Table names of the run history schema.
const (
	RunsTable       = "hpt_runs"
	ViolationsTable = "hpt_violations"
)

// Runs is the run table. Column order matches RunValues.
var Runs = ddl.TableDef{
	Name: RunsTable,
	Columns: []ddl.ColumnDef{
		{Name: "id", Type: ddl.TypeID, PrimaryKey: true},
		{Name: "job", Type: ddl.TypeString},
		{Name: "name", Type: ddl.TypeText},
		{Name: "version", Type: ddl.TypeString},
		{Name: "format", Type: ddl.TypeString},
		{Name: "valid", Type: ddl.TypeBool},
		{Name: "error_count", Type: ddl.TypeInt},
		{Name: "warning_count", Type: ddl.TypeInt},
		{Name: "alert_count", Type: ddl.TypeInt},
		{Name: "row_count", Type: ddl.TypeInt},
		{Name: "byte_count", Type: ddl.TypeInt},
		{Name: "fingerprint", Type: ddl.TypeString},
		{Name: "started_at", Type: ddl.TypeTime},
		{Name: "duration_ms", Type: ddl.TypeInt},
	},
}

// Violations is the violation table. Column order matches ViolationRows.
var Violations = ddl.TableDef{
	Name: ViolationsTable,
	Columns: []ddl.ColumnDef{
		{Name: "run_id", Type: ddl.TypeID, PrimaryKey: true},
		{Name: "seq", Type: ddl.TypeInt, PrimaryKey: true},
		{Name: "kind", Type: ddl.TypeString},
		{Name: "path", Type: ddl.TypeText},
		{Name: "field", Type: ddl.TypeText},
		{Name: "message", Type: ddl.TypeText},
	},
}

// RunValues returns the Runs row for run.
func RunValues(run Run) []any {
	return []any{
		run.ID, run.Job, run.Name, run.Version, run.Format, run.Valid,
		int64(run.Errors), int64(run.Warnings), int64(run.Alerts), int64(run.Rows), run.Bytes,
		run.Fingerprint, run.StartedAt.UTC(), run.Duration.Milliseconds(),
	}
}

// ViolationRows returns the Violations rows for run.
func ViolationRows(run Run) [][]any {
	rows := make([][]any, len(run.Violations))
	for i, v := range run.Violations {
		rows[i] = []any{run.ID, int64(v.Seq), v.Kind, v.Path, v.Field, v.Message}
	}
	return rows
}

// Execer runs a single DDL statement.
type Execer interface {
	Exec(ctx context.Context, sql string) error
}

// EnsureSchema creates the history tables in dialect d when they are missing.
func EnsureSchema(ctx context.Context, x Execer, d ddl.Dialect) error {
	for _, t := range []ddl.TableDef{Runs, Violations} {
		stmt, err := ddl.BuildCreateTableSQL(t, d)
		if err != nil {
			return fmt.Errorf("storage: %s: %w", t.Name, err)
		}
		if err := x.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("storage: create %s: %w", t.Name, err)
		}
	}
	return nil
}
