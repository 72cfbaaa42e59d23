package ddl

// Type is a logical column type. Dialects map it onto a concrete SQL type.
type Type int

const (
	// TypeID holds a canonical UUID string.
	TypeID Type = iota
	// TypeString is a short label (job, version, file name).
	TypeString
	// TypeText is unbounded text (messages, paths).
	TypeText
	TypeInt
	TypeBool
	TypeTime
)

// ColumnDef describes a single column.
//
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - Type: logical type, rendered through Dialect.Types
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
type ColumnDef struct {
	Name       string
	Type       Type
	Nullable   bool
	PrimaryKey bool
}

// TableDef holds a table name and an ordered list of columns.
type TableDef struct {
	Name    string
	Columns []ColumnDef
}

// ColumnNames returns the column names in declaration order.
func (t TableDef) ColumnNames() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Dialect captures the differences between SQL backends that matter for
// creating and filling the history tables.
type Dialect struct {
	Name string

	// Quote quotes a single identifier.
	Quote func(string) string

	// Placeholder returns the bind parameter for the 1-based position n.
	Placeholder func(n int) string

	// Types maps every logical Type to a SQL type.
	Types map[Type]string

	// CreateTable wraps a bare CREATE TABLE statement so that it is a no-op
	// when the table exists. Nil means the dialect supports IF NOT EXISTS.
	CreateTable func(table, stmt string) string
}
