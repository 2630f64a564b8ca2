package file

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func writeTempFile(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "list.txt")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestReadList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{
			name: "comments and blanks",
			content: `
# nightly sources
data/orders.csv
   # disabled: data/old.csv
https://example.com/customers.json   # weekly

   data/items.xlsx
`,
			want: []string{"data/orders.csv", "https://example.com/customers.json", "data/items.xlsx"},
		},
		{
			name:    "leading bom",
			content: "\ufeffdata/a.csv\ndata/b.csv\n",
			want:    []string{"data/a.csv", "data/b.csv"},
		},
		{
			name:    "empty",
			content: "",
			want:    nil,
		},
	}
	for _, tt := range tests {
		got, err := ReadList(writeTempFile(t, tt.content))
		if err != nil {
			t.Fatalf("%s: ReadList: %v", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: ReadList = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestParseList_KeepsFragments(t *testing.T) {
	t.Parallel()

	got, err := ParseList(strings.NewReader("https://host/a.csv#sheet\n\tdata/b.csv\t# note\n"))
	if err != nil {
		t.Fatalf("ParseList: %v", err)
	}
	want := []string{"https://host/a.csv#sheet", "data/b.csv"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ParseList = %#v, want %#v", got, want)
	}
}

func TestReadList_FileNotFound(t *testing.T) {
	t.Parallel()

	if _, err := ReadList("does-not-exist-12345.txt"); err == nil {
		t.Fatalf("expected error for missing file, got nil")
	}
}
