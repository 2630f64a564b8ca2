package sqlparser

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open(DriverSQLite, path)
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	for _, stmt := range []string{
		`CREATE TABLE "order items" (id INTEGER PRIMARY KEY, name TEXT, price REAL)`,
		`INSERT INTO "order items" VALUES (1, 'pen', 1.5), (2, 'ink', NULL), (3, 'pad', 4)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("exec %q: %v", stmt, err)
		}
	}
	return "sqlite:///" + path
}

func readAll(t *testing.T, url string, control config.Options) ([][]any, error) {
	t.Helper()
	p, err := system.Default.CreateParser(system.Spec{
		Location: location.Location{Fullpath: url, Scheme: "sqlite", Format: location.FormatSQL},
		Control:  control,
	})
	if err != nil {
		t.Fatalf("CreateParser: %v", err)
	}
	defer p.Close()
	if err := p.Open(context.Background()); err != nil {
		return nil, err
	}
	var out [][]any
	for {
		row, err := p.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

func TestParser_Table(t *testing.T) {
	t.Parallel()

	url := seed(t)
	got, err := readAll(t, url, config.Options{OptTable: "order items", OptOrderBy: "id desc"})
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]any{
		{"id", "name", "price"},
		{int64(3), "pad", 4.0},
		{int64(2), "ink", nil},
		{int64(1), "pen", 1.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
}

func TestParser_Errors(t *testing.T) {
	t.Parallel()

	url := seed(t)
	if _, err := readAll(t, url, nil); !errs.Has(err, errs.CodeDialect) {
		t.Fatalf("missing table error = %v, want dialect-error", err)
	}
	if _, err := readAll(t, url, config.Options{OptTable: "missing"}); !errs.Has(err, errs.CodeSource) {
		t.Fatalf("unknown table error = %v, want source-error", err)
	}
}

func TestConnection(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw    string
		driver string
		dsn    string
	}{
		{"postgresql://u@localhost/shop?sslmode=disable", DriverPostgres, "postgresql://u@localhost/shop?sslmode=disable"},
		{"sqlite:///data/shop.db", DriverSQLite, "data/shop.db"},
		{"sqlite:////var/shop.db", DriverSQLite, "/var/shop.db"},
		{"mssql://sa:pw@db:1433?database=shop", DriverSQLServer, "sqlserver://sa:pw@db:1433?database=shop"},
		{"mysql://root:pw@db:3306/shop", DriverMySQL, "root:pw@tcp(db:3306)/shop?"},
	}
	for _, tt := range tests {
		driver, dsn, err := Connection(tt.raw)
		if err != nil {
			t.Fatalf("Connection(%q): %v", tt.raw, err)
		}
		if driver != tt.driver || !strings.HasPrefix(dsn, tt.dsn) {
			t.Fatalf("Connection(%q) = %q, %q, want %q, %q", tt.raw, driver, dsn, tt.driver, tt.dsn)
		}
	}

	if _, _, err := Connection("oracle://x"); !errs.Has(err, errs.CodeScheme) {
		t.Fatalf("oracle error = %v, want scheme-error", err)
	}
}

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct{ driver, in, want string }{
		{DriverSQLite, `public.my"t`, `"public"."my""t"`},
		{DriverMySQL, "t", "`t`"},
		{DriverSQLServer, "dbo.t]x", "[dbo].[t]]x]"},
	}
	for _, tt := range tests {
		if got := quoteIdent(tt.driver, tt.in); got != tt.want {
			t.Fatalf("quoteIdent(%s, %q) = %q, want %q", tt.driver, tt.in, got, tt.want)
		}
	}
	if got := orderBy(DriverSQLite, "a desc, b, c sideways"); got != `"a" DESC, "b", "c"` {
		t.Fatalf("orderBy = %q", got)
	}
}
