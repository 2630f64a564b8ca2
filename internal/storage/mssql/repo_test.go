package mssql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync"
	"testing"
)

// failingDriver opens connections whose transactions and statements fail,
// so error paths run without a server.
type failingDriver struct{}

type failingConn struct{}

func (failingDriver) Open(string) (driver.Conn, error) { return failingConn{}, nil }

func (failingConn) Prepare(string) (driver.Stmt, error) { return nil, errors.New("prepare failed") }
func (failingConn) Close() error                        { return nil }
func (failingConn) Begin() (driver.Tx, error)           { return nil, errors.New("begin failed") }

func (failingConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New("begin failed")
}

func (failingConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	return nil, errors.New("exec failed")
}

var registerFailing sync.Once

func failingRepo(t *testing.T) *Repository {
	t.Helper()
	registerFailing.Do(func() { sql.Register("mssql_failing", failingDriver{}) })
	db, err := sql.Open("mssql_failing", "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db, cfg: Config{Table: "dbo.people"}}
}

func TestCopyFrom_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		columns []string
		rows    [][]any
		want    string
	}{
		{"no columns", nil, [][]any{{1}}, "columns must not be empty"},
		{"short row", []string{"id", "name"}, [][]any{{1, "ann"}, {2}}, "row 1 has 1 values, want 2"},
		{"begin", []string{"id", "name"}, [][]any{{1, "ann"}}, "mssql: begin: begin failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			n, err := failingRepo(t).CopyFrom(context.Background(), tt.columns, tt.rows)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("CopyFrom error = %v, want it to contain %q", err, tt.want)
			}
			if n != 0 {
				t.Fatalf("CopyFrom = %d, want 0", n)
			}
		})
	}
}

func TestCopyFrom_NoRows(t *testing.T) {
	t.Parallel()

	// A nil db proves nothing is touched.
	r := &Repository{cfg: Config{Table: "dbo.people"}}
	if n, err := r.CopyFrom(context.Background(), []string{"id"}, nil); err != nil || n != 0 {
		t.Fatalf("CopyFrom(nil) = %d, %v, want 0, nil", n, err)
	}
}

func TestExec_WrapsDriverError(t *testing.T) {
	t.Parallel()

	err := failingRepo(t).Exec(context.Background(), "DROP TABLE x")
	if err == nil || !strings.HasPrefix(err.Error(), "mssql: exec: ") || !strings.Contains(err.Error(), "exec failed") {
		t.Fatalf("Exec error = %v, want wrapped exec failed", err)
	}
}

func TestNewRepository_EmptyDSN(t *testing.T) {
	t.Parallel()

	if _, _, err := NewRepository(context.Background(), Config{}); err == nil {
		t.Fatalf("NewRepository(empty DSN) error = nil, want error")
	}
}

func TestQuoteFQN(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"people":         "[people]",
		"dbo.people":     "[dbo].[people]",
		"tempdb.dbo.a]b": "[tempdb].[dbo].[a]]b]",
	}
	for in, want := range tests {
		if got := quoteFQN(in); got != want {
			t.Fatalf("quoteFQN(%q) = %q, want %q", in, got, want)
		}
	}
}
