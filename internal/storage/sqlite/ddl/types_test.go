package ddl

import "testing"

// TestMapType verifies that MapType maps schema field types into SQLite
// affinities and falls back to TEXT.
func TestMapType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind string
		want string
	}{
		{kind: "integer", want: "INTEGER"},
		{kind: "  InTeGeR  ", want: "INTEGER"},
		{kind: "boolean", want: "INTEGER"},
		{kind: "number", want: "REAL"},
		{kind: "date", want: "TEXT"},
		{kind: "datetime", want: "TEXT"},
		{kind: "string", want: "TEXT"},
		{kind: "any", want: "TEXT"},
		{kind: "", want: "TEXT"},
	}
	for _, tt := range tests {
		if got := MapType(tt.kind); got != tt.want {
			t.Fatalf("MapType(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
