// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// A table definition is derived from a resource schema with FromSchema; each
// storage backend supplies a Dialect (identifier quoting, type mapping, the
// "create if missing" idiom) and renders it with BuildCreateTableSQL.
package ddl

import (
	"fmt"
	"strings"

	"tabular/internal/schema"
)

// FromSchema derives a table definition from sch. Required and primary key
// fields become NOT NULL.
func FromSchema(table string, sch *schema.Schema, mapType func(string) string) (TableDef, error) {
	if strings.TrimSpace(table) == "" {
		return TableDef{}, fmt.Errorf("ddl: missing table")
	}
	if sch.Empty() {
		return TableDef{}, fmt.Errorf("ddl: schema for %s has no fields", table)
	}
	pk := make(map[string]bool, len(sch.PrimaryKey))
	for _, name := range sch.PrimaryKey {
		pk[name] = true
	}
	defs := make([]ColumnDef, 0, len(sch.Fields))
	for _, f := range sch.Fields {
		defs = append(defs, ColumnDef{
			Name:       f.Name,
			SQLType:    mapType(f.Type),
			Nullable:   !f.Constraints.Required && !pk[f.Name],
			PrimaryKey: pk[f.Name],
		})
	}
	return TableDef{FQN: table, Columns: defs}, nil
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty; each dotted segment is quoted separately.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL] [DEFAULT <Default>]
//
//     where NOT NULL is added when Nullable == false or the column is part of
//     the primary key.
//
//   - Primary key columns are rendered as a separate PRIMARY KEY clause, in
//     column order.
func BuildCreateTableSQL(t TableDef, d Dialect) (string, error) {
	name := d.Name
	if name == "" {
		name = "ddl"
	}
	quote := d.Quote
	if quote == nil {
		quote = func(s string) string { return s }
	}

	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("%s: table FQN must not be empty", name)
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("%s: at least one column is required", name)
	}

	cols := make([]string, 0, len(t.Columns)+1)
	pks := make([]string, 0, len(t.Columns))

	for _, c := range t.Columns {
		col := strings.TrimSpace(c.Name)
		if col == "" {
			return "", fmt.Errorf("%s: column with empty name in table %s", name, fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("%s: column %s missing SQLType", name, col)
		}

		var sb strings.Builder
		sb.WriteString(quote(col))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable || c.PrimaryKey {
			sb.WriteString(" NOT NULL")
		}
		if def := strings.TrimSpace(c.Default); def != "" {
			sb.WriteString(" DEFAULT ")
			// Default is emitted as raw SQL expression.
			sb.WriteString(def)
		}
		cols = append(cols, sb.String())

		if c.PrimaryKey {
			pks = append(pks, quote(col))
		}
	}
	if len(pks) > 0 {
		cols = append(cols, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(pks, ", ")))
	}

	qfqn := QuoteFQN(fqn, quote)
	create := "CREATE TABLE "
	if d.IfNotExists {
		create += "IF NOT EXISTS "
	}
	stmt := fmt.Sprintf("%s%s (\n  %s\n);", create, qfqn, strings.Join(cols, ",\n  "))
	if d.Guard != nil {
		stmt = d.Guard(qfqn, stmt)
	}
	return stmt, nil
}

// QuoteFQN quotes a possibly schema-qualified name segment by segment.
// Empty segments are dropped.
func QuoteFQN(fqn string, quote func(string) string) string {
	parts := strings.Split(fqn, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, quote(p))
	}
	return strings.Join(out, ".")
}
