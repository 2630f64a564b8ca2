// Package ddl contains MSSQL-specific helpers for generating DDL.
package ddl

import (
	"strings"

	"tabular/internal/schema"
)

// MapType maps a schema field type into a SQL Server column type.
//
// Unknown or empty kinds fall back to NVARCHAR(MAX).
func MapType(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case schema.TypeInteger:
		return "BIGINT"
	case schema.TypeBoolean:
		return "BIT"
	case schema.TypeDate:
		return "DATE"
	case schema.TypeDatetime:
		return "DATETIME2"
	case schema.TypeNumber:
		return "FLOAT"
	default:
		return "NVARCHAR(MAX)"
	}
}
