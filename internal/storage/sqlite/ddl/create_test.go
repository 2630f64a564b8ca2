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
		{in: "name", want: `"name"`},
		{in: "", want: `""`},
		{in: "user name", want: `"user name"`},
		{in: `weird"name`, want: `"weird""name"`},
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
		FQN: "main.events",
		Columns: []gddl.ColumnDef{
			{Name: "id", SQLType: "INTEGER", PrimaryKey: true},
			{Name: "label", SQLType: "TEXT", Nullable: true},
		},
	}
	got, err := BuildCreateTableSQL(def)
	if err != nil {
		t.Fatalf("BuildCreateTableSQL: %v", err)
	}
	want := "CREATE TABLE IF NOT EXISTS \"main\".\"events\" (\n" +
		"  \"id\" INTEGER NOT NULL,\n" +
		"  \"label\" TEXT,\n" +
		"  PRIMARY KEY (\"id\")\n" +
		");"
	if got != want {
		t.Fatalf("BuildCreateTableSQL =\n%s\nwant\n%s", got, want)
	}

	if _, err := BuildCreateTableSQL(gddl.TableDef{FQN: "events"}); err == nil {
		t.Fatalf("BuildCreateTableSQL(no columns) error = nil, want error")
	}
}
