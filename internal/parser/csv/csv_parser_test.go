package csv

import (
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	_ "tabular/internal/datasource/memory"

	"tabular/internal/config"
	"tabular/internal/dialect"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

func openParser(t *testing.T, format, body string, opts config.Options) system.Parser {
	t.Helper()
	spec := system.Spec{
		Location: location.Location{Scheme: location.SchemeBuffer, Format: format},
		Bytes:    []byte(body),
		Dialect:  dialect.New(config.Dialect{Options: opts}),
	}
	p, err := system.Default.CreateParser(spec)
	if err != nil {
		t.Fatalf("CreateParser: %v", err)
	}
	if err := p.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func drain(t *testing.T, p system.Parser) [][]any {
	t.Helper()
	var out [][]any
	for {
		row, err := p.Read()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		out = append(out, row)
	}
}

func TestParser_Read(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		body   string
		opts   config.Options
		want   [][]any
	}{
		{
			name:   "basic with bom and ragged rows",
			format: "csv",
			body:   "\ufeffid,name\n1,Ada\n2\n3,\"Grace, H\",x\n",
			want:   [][]any{{"id", "name"}, {"1", "Ada"}, {"2"}, {"3", "Grace, H", "x"}},
		},
		{
			name:   "tsv default delimiter",
			format: "tsv",
			body:   "a\tb\n1\t2\n",
			want:   [][]any{{"a", "b"}, {"1", "2"}},
		},
		{
			name:   "dialect options",
			format: "csv",
			body:   "# comment\na; b\n 1 ;2\n",
			opts:   config.Options{OptDelimiter: ";", OptCommentChar: "#", OptTrimSpace: true},
			want:   [][]any{{"a", "b"}, {"1", "2"}},
		},
		{
			name:   "replace broken quoting",
			format: "csv",
			body:   "name\n\"Acme \"v likvidaci\"\"\n",
			opts:   config.Options{OptReplace: map[string]any{` "v likvidaci""`: ` (v likvidaci)"`}},
			want:   [][]any{{"name"}, {"Acme (v likvidaci)"}},
		},
	}
	for _, tt := range tests {
		got := drain(t, openParser(t, tt.format, tt.body, tt.opts))
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: rows = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestParser_MalformedIsSourceError(t *testing.T) {
	t.Parallel()

	p := openParser(t, "csv", "a,b\n\"unterminated,1\nx\"y,2\n", nil)
	var err error
	for err == nil {
		_, err = p.Read()
	}
	if !errs.Has(err, errs.CodeSource) {
		t.Fatalf("Read error = %v, want source-error", err)
	}
}

func TestParser_LoaderAttached(t *testing.T) {
	t.Parallel()

	p := openParser(t, "csv", "a\n", nil)
	if !p.NeedsLoader() || p.Loader() == nil {
		t.Fatalf("parser has no loader")
	}
}

func TestStreamingRewriter_BoundaryMatch(t *testing.T) {
	t.Parallel()

	// Long enough to cross the 64k chunk boundary.
	body := strings.Repeat("x", 64*1024-3) + "ABCDEF" + strings.Repeat("y", 10)
	got, err := io.ReadAll(newStreamingRewriter(strings.NewReader(body), []byte("ABCDEF"), []byte("-")))
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := strings.Repeat("x", 64*1024-3) + "-" + strings.Repeat("y", 10)
	if string(got) != want {
		t.Fatalf("rewritten length = %d, want %d", len(got), len(want))
	}
}
