// Package all registers every built-in format with system.Default:
// csv, tsv, json, jsonl, ndjson, xml, xlsx, xlsm, parquet, inline and sql.
package all

import (
	_ "tabular/internal/parser/csv"
	_ "tabular/internal/parser/excel"
	_ "tabular/internal/parser/inline"
	_ "tabular/internal/parser/json"
	_ "tabular/internal/parser/parquet"
	_ "tabular/internal/parser/sql"
	_ "tabular/internal/parser/xml"
)
