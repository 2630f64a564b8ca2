package json

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	_ "tabular/internal/datasource/memory"

	"tabular/internal/config"
	"tabular/internal/dialect"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

func readAll(t *testing.T, format, body string, opts config.Options) ([][]any, error) {
	t.Helper()
	spec := system.Spec{
		Location: location.Location{Scheme: location.SchemeBuffer, Format: format},
		Bytes:    []byte(body),
		Dialect:  dialect.New(config.Dialect{Options: opts}),
	}
	p, err := system.Default.CreateParser(spec)
	if err != nil {
		t.Fatalf("CreateParser(%s): %v", format, err)
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

func TestParser_Shapes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		body   string
		opts   config.Options
		want   [][]any
	}{
		{
			name:   "array of arrays",
			format: "json",
			body:   `[["id","name"],[1,"A"],[2.5,null]]`,
			want:   [][]any{{"id", "name"}, {int64(1), "A"}, {2.5, nil}},
		},
		{
			name:   "array of objects keeps key order",
			format: "json",
			body:   `[{"name":"A","id":1},{"id":2,"extra":true,"name":"B"},{"id":3}]`,
			want:   [][]any{{"name", "id"}, {"A", int64(1)}, {"B", int64(2)}, {nil, int64(3)}},
		},
		{
			name:   "envelope",
			format: "json",
			body:   `{"meta":{"count":2},"records":[{"id":1},{"id":2}]}`,
			want:   [][]any{{"id"}, {int64(1)}, {int64(2)}},
		},
		{
			name:   "envelope by property",
			format: "json",
			body:   `{"other":[[9]],"data":[[1,2]]}`,
			opts:   config.Options{OptProperty: "data"},
			want:   [][]any{{int64(1), int64(2)}},
		},
		{
			name:   "single object",
			format: "json",
			body:   `{"id":7,"name":"solo"}`,
			want:   [][]any{{"id", "name"}, {int64(7), "solo"}},
		},
		{
			name:   "explicit keys",
			format: "json",
			body:   `[{"a":1,"b":2}]`,
			opts:   config.Options{OptKeys: []any{"b", "a"}},
			want:   [][]any{{"b", "a"}, {int64(2), int64(1)}},
		},
		{
			name:   "keyed false drops header",
			format: "json",
			body:   `[{"a":1}]`,
			opts:   config.Options{OptKeyed: false},
			want:   [][]any{{int64(1)}},
		},
		{
			name:   "empty array",
			format: "json",
			body:   `[]`,
		},
		{
			name:   "ndjson",
			format: "ndjson",
			body:   "{\"id\":1,\"name\":\"a\"}\n\n{\"id\":2,\"name\":\"b\"}\n",
			want:   [][]any{{"id", "name"}, {int64(1), "a"}, {int64(2), "b"}},
		},
		{
			name:   "jsonl arrays",
			format: "jsonl",
			body:   "[\"x\",\"y\"]\n[1,2]\n",
			want:   [][]any{{"x", "y"}, {int64(1), int64(2)}},
		},
	}
	for _, tt := range tests {
		got, err := readAll(t, tt.format, tt.body, tt.opts)
		if err != nil {
			t.Fatalf("%s: read: %v", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s: rows = %#v, want %#v", tt.name, got, tt.want)
		}
	}
}

func TestParser_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		format string
		body   string
		opts   config.Options
	}{
		{"scalar root", "json", `42`, nil},
		{"truncated array", "json", `[[1,2],[3`, nil},
		{"bad ndjson line", "ndjson", "{\"a\":1}\n{oops}\n", nil},
		{"property not an array", "json", `{"data":1}`, config.Options{OptProperty: "data"}},
	}
	for _, tt := range tests {
		_, err := readAll(t, tt.format, tt.body, tt.opts)
		if !errs.Has(err, errs.CodeSource) {
			t.Fatalf("%s: error = %v, want source-error", tt.name, err)
		}
	}
}

func TestParser_NotOpen(t *testing.T) {
	t.Parallel()

	p := New(system.Spec{}, nil, false)
	if _, err := p.Read(); !errs.Has(err, errs.CodeResource) {
		t.Fatalf("Read before Open = %v, want resource-error", err)
	}
	if !p.NeedsLoader() {
		t.Fatalf("NeedsLoader = false, want true")
	}
}
