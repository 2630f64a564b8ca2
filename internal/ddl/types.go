package ddl

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, TIMESTAMPTZ)
//   - Nullable: whether NULL is allowed
//   - PrimaryKey: whether the column is part of the primary key
//   - Default: raw default expression (e.g., 'anon', CURRENT_TIMESTAMP)
type ColumnDef struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
	Default    string
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and will
// be quoted/escaped by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// Dialect is what a backend contributes to CREATE TABLE rendering.
type Dialect struct {
	// Name prefixes error messages, e.g. "postgres ddl".
	Name string
	// Quote quotes one identifier segment.
	Quote func(string) string
	// MapType maps a schema field type to a column type.
	MapType func(fieldType string) string
	// IfNotExists selects CREATE TABLE IF NOT EXISTS.
	IfNotExists bool
	// Guard, when set, wraps the statement; it receives the quoted FQN.
	// SQL Server uses it for its OBJECT_ID check.
	Guard func(fqn, stmt string) string
}
