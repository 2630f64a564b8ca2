// Package sqlparser registers the sql format: a table read from a database named
// by URL. The table comes from the table control or dialect option; rows
// are streamed from a single SELECT, preceded by the result column names.
package sqlparser

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

// Option keys, read from control first and then the dialect.
const (
	OptTable   = "table"
	OptOrderBy = "order_by"
)

const logEveryN = 50_000

func init() {
	system.Default.RegisterParser(location.FormatSQL, system.ParserEntry{
		New: func(spec system.Spec, _ system.Loader) (system.Parser, error) {
			return New(spec), nil
		},
	})
}

// Parser streams one table.
type Parser struct {
	spec system.Spec

	db     *sql.DB
	rows   *sql.Rows
	header []any
	width  int
	sent   bool
	n      int
}

// New returns an unopened parser.
func New(spec system.Spec) *Parser { return &Parser{spec: spec} }

func (p *Parser) option(key string) string {
	if v := p.spec.Control.String(key, ""); v != "" {
		return v
	}
	return p.spec.Dialect.Options().String(key, "")
}

// Open connects and runs the SELECT.
func (p *Parser) Open(ctx context.Context) error {
	table := p.option(OptTable)
	if table == "" {
		return errs.New(errs.CodeDialect, "sql source requires the %q option", OptTable)
	}
	driver, dsn, err := Connection(p.spec.Location.Fullpath)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return errs.Wrap(errs.CodeSource, err)
	}

	query := "SELECT * FROM " + quoteIdent(driver, table)
	if order := p.option(OptOrderBy); order != "" {
		query += " ORDER BY " + orderBy(driver, order)
	}
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		_ = db.Close()
		return errs.New(errs.CodeSource, "query %s: %v", table, err)
	}
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		_ = db.Close()
		return errs.Wrap(errs.CodeSource, err)
	}
	p.header = make([]any, len(cols))
	for i, c := range cols {
		p.header[i] = c
	}
	p.db, p.rows = db, rows
	p.width = len(cols)
	p.sent, p.n = false, 0
	log.Printf("sql: opened driver=%s table=%s columns=%d", driver, table, len(cols))
	return nil
}

// orderBy quotes a comma-separated column list, keeping asc/desc suffixes.
func orderBy(driver, spec string) string {
	var parts []string
	for _, item := range strings.Split(spec, ",") {
		fields := strings.Fields(item)
		if len(fields) == 0 {
			continue
		}
		part := quoteIdent(driver, fields[0])
		if len(fields) > 1 {
			switch dir := strings.ToUpper(fields[1]); dir {
			case "ASC", "DESC":
				part += " " + dir
			}
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

// Read returns the column names first, then one row per record.
func (p *Parser) Read() ([]any, error) {
	if p.rows == nil {
		return nil, errs.New(errs.CodeResource, "sql parser is not open")
	}
	if !p.sent {
		p.sent = true
		return append([]any(nil), p.header...), nil
	}
	if !p.rows.Next() {
		if err := p.rows.Err(); err != nil {
			return nil, errs.Wrap(errs.CodeSource, err)
		}
		return nil, io.EOF
	}
	vals := make([]any, p.width)
	ptrs := make([]any, p.width)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := p.rows.Scan(ptrs...); err != nil {
		return nil, errs.New(errs.CodeSource, "scan row: %v", err)
	}
	for i, v := range vals {
		if b, ok := v.([]byte); ok {
			vals[i] = string(b)
		}
	}
	p.n++
	if p.n%logEveryN == 0 {
		log.Printf("sql: progress rows=%d", p.n)
	}
	return vals, nil
}

// NeedsLoader is false: the driver reads the database directly.
func (p *Parser) NeedsLoader() bool { return false }

// Loader returns nil.
func (p *Parser) Loader() system.Loader { return nil }

// Close releases the result set and the connection pool.
func (p *Parser) Close() error {
	var first error
	if p.rows != nil {
		first = p.rows.Close()
		p.rows = nil
	}
	if p.db != nil {
		if err := p.db.Close(); err != nil && first == nil {
			first = fmt.Errorf("close db: %w", err)
		}
		p.db = nil
	}
	return first
}
