package ddl

import (
	"testing"

	gddl "tabular/internal/ddl"
)

func TestQuoteIdent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "name", want: "[name]"},
		{in: "weird]id", want: "[weird]]id]"},
		{in: "", want: "[]"},
	}
	for _, tt := range tests {
		if got := QuoteIdent(tt.in); got != tt.want {
			t.Fatalf("QuoteIdent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	def := gddl.TableDef{
		FQN: "dbo.o'brien",
		Columns: []gddl.ColumnDef{
			{Name: "id", SQLType: "BIGINT", PrimaryKey: true},
			{Name: "name", SQLType: "NVARCHAR(MAX)", Nullable: true},
		},
	}
	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "IF OBJECT_ID(N'[dbo].[o''brien]', N'U') IS NULL\nBEGIN\n" +
		"CREATE TABLE [dbo].[o'brien] (\n" +
		"  [id] BIGINT NOT NULL,\n" +
		"  [name] NVARCHAR(MAX),\n" +
		"  PRIMARY KEY ([id])\n" +
		");\nEND;"
	if got != want {
		t.Fatalf("BuildCreateTableSQL =\n%s\nwant\n%s", got, want)
	}
}

func TestBuildCreateTableSQLErrors(t *testing.T) {
	t.Parallel()

	tests := []gddl.TableDef{
		{FQN: " ", Columns: []gddl.ColumnDef{{Name: "id", SQLType: "BIGINT"}}},
		{FQN: "dbo.t"},
		{FQN: "dbo.t", Columns: []gddl.ColumnDef{{Name: " ", SQLType: "BIGINT"}}},
		{FQN: "dbo.t", Columns: []gddl.ColumnDef{{Name: "id"}}},
	}
	for _, def := range tests {
		if got, err := BuildCreateTableSQL(def); err == nil || got != "" {
			t.Fatalf("BuildCreateTableSQL(%+v) = %q, %v, want error", def, got, err)
		}
	}
}
