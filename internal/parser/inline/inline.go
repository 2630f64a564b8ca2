// Package inline registers the inline format, which reads rows supplied in
// memory. Rows are cell arrays; a row holding a single object is a keyed
// record, and keyed records are preceded by a header row of their keys.
package inline

import (
	"context"
	"io"
	"sort"

	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

// OptKeys fixes the header order for keyed records.
const OptKeys = "keys"

func init() {
	system.Default.RegisterParser(location.FormatInline, system.ParserEntry{
		New: func(spec system.Spec, _ system.Loader) (system.Parser, error) {
			return New(spec), nil
		},
	})
}

// Parser iterates spec.Data.
type Parser struct {
	spec system.Spec

	open    bool
	next    int
	header  []string
	keyed   bool
	pending []any
}

// New returns an unopened parser.
func New(spec system.Spec) *Parser { return &Parser{spec: spec} }

// Open rewinds to the first row. Inline data can be reopened any number of
// times.
func (p *Parser) Open(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.open = true
	p.next = 0
	p.keyed = false
	p.header = p.spec.Dialect.Options().StringSlice(OptKeys)
	p.pending = nil
	return nil
}

// Read returns the next row. Rows are copied so callers may modify them.
func (p *Parser) Read() ([]any, error) {
	if !p.open {
		return nil, errs.New(errs.CodeResource, "inline parser is not open")
	}
	if p.pending != nil {
		row := p.pending
		p.pending = nil
		return row, nil
	}
	if p.next >= len(p.spec.Data) {
		return nil, io.EOF
	}
	row := p.spec.Data[p.next]
	p.next++

	rec, ok := keyedRecord(row)
	if !ok {
		if p.keyed {
			return nil, errs.New(errs.CodeSource, "inline row %d mixes arrays and objects", p.next)
		}
		return append([]any(nil), row...), nil
	}
	if p.next == 1 {
		p.keyed = true
		if len(p.header) == 0 {
			for k := range rec {
				p.header = append(p.header, k)
			}
			sort.Strings(p.header)
		}
		head := make([]any, len(p.header))
		for i, k := range p.header {
			head[i] = k
		}
		p.pending = values(rec, p.header)
		return head, nil
	}
	if !p.keyed {
		return nil, errs.New(errs.CodeSource, "inline row %d mixes arrays and objects", p.next)
	}
	return values(rec, p.header), nil
}

func keyedRecord(row []any) (map[string]any, bool) {
	if len(row) != 1 {
		return nil, false
	}
	m, ok := row[0].(map[string]any)
	return m, ok
}

func values(rec map[string]any, keys []string) []any {
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = rec[k]
	}
	return out
}

// NeedsLoader is false: inline data has no byte source.
func (p *Parser) NeedsLoader() bool { return false }

// Loader returns nil.
func (p *Parser) Loader() system.Loader { return nil }

// Close marks the parser closed.
func (p *Parser) Close() error {
	p.open = false
	p.pending = nil
	return nil
}
