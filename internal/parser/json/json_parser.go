// Package json registers the json, jsonl and ndjson formats.
//
// A json document may be:
//
//   - an array of arrays, each inner array being one row;
//   - an array of objects, keyed by field name;
//   - an object wrapping such an array under some property (an envelope);
//     without the property option the first array-valued property is used;
//   - a single object, read as one keyed record.
//
// Keyed records are turned into a header row of keys followed by value rows
// aligned to it. Arrays are streamed element by element with a jsoniter
// Iterator, so a large root array is never held in memory.
//
// jsonl and ndjson read one value per line with the same row rules.
package json

import (
	"bufio"
	"context"
	stdjson "encoding/json"
	"errors"
	"io"
	"log"
	"strings"

	jsoniter "github.com/json-iterator/go"

	"tabular/internal/errs"
	"tabular/internal/system"
)

// Dialect option keys.
const (
	// OptProperty names the envelope property holding the rows.
	OptProperty = "property"
	// OptKeys fixes the header order for keyed records.
	OptKeys = "keys"
	// OptKeyed set to false drops the header row built from object keys.
	OptKeyed = "keyed"
)

const logEveryN = 50_000

var api = jsoniter.Config{
	EscapeHTML:             true,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
	UseNumber:              true,
}.Froze()

func init() {
	system.Default.RegisterParser("json", system.ParserEntry{
		NeedsLoader: true,
		New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
			return New(spec, l, false), nil
		},
	})
	for _, format := range []string{"jsonl", "ndjson"} {
		system.Default.RegisterParser(format, system.ParserEntry{
			NeedsLoader: true,
			New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
				return New(spec, l, true), nil
			},
		})
	}
}

// record is one decoded element: either positional cells or an object with
// keys in document order.
type record struct {
	cells  []any
	keys   []string
	values map[string]any
	keyed  bool
}

// Parser reads json documents or line-delimited json.
type Parser struct {
	spec   system.Spec
	loader system.Loader
	lines  bool

	iter    *jsoniter.Iterator
	scanner *bufio.Scanner
	// streaming is true while positioned inside the row array.
	streaming bool
	started   bool
	pending   [][]any
	header    []string
	keyed     bool
	done      bool
	rows      int
	lineNo    int
}

// New returns an unopened parser. lines selects one-value-per-line input.
func New(spec system.Spec, l system.Loader, lines bool) *Parser {
	return &Parser{spec: spec, loader: l, lines: lines}
}

// Open opens the loader and positions the decoder at the first row.
func (p *Parser) Open(ctx context.Context) error {
	if err := p.loader.Open(ctx); err != nil {
		return err
	}
	p.reset()
	opt := p.spec.Dialect.Options()
	p.header = opt.StringSlice(OptKeys)
	p.keyed = opt.Bool(OptKeyed, true)

	r := p.loader.TextStream()
	if p.lines {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
		p.scanner = sc
		return nil
	}
	p.iter = jsoniter.Parse(api, r, 32*1024)
	return p.position(opt.String(OptProperty, ""))
}

func (p *Parser) reset() {
	p.iter, p.scanner = nil, nil
	p.streaming, p.started, p.done = false, false, false
	p.pending, p.header = nil, nil
	p.rows, p.lineNo = 0, 0
}

// position moves the iterator to the start of the row array, or queues the
// rows of a root that is not an array.
func (p *Parser) position(property string) error {
	it := p.iter
	switch it.WhatIsNext() {
	case jsoniter.ArrayValue:
		p.streaming = true
		return p.iterErr()

	case jsoniter.ObjectValue:
		var keys []string
		values := map[string]any{}
		for field := it.ReadObject(); field != ""; field = it.ReadObject() {
			if property != "" && field != property {
				it.Skip()
				continue
			}
			if it.WhatIsNext() == jsoniter.ArrayValue {
				p.streaming = true
				return p.iterErr()
			}
			keys = append(keys, field)
			values[field] = cell(it.Read())
		}
		if err := p.iterErr(); err != nil {
			return err
		}
		if property != "" {
			if _, ok := values[property]; !ok {
				return errs.New(errs.CodeSource, "json property %q is not an array", property)
			}
			p.done = true
			return nil
		}
		p.queue(record{keys: keys, values: values, keyed: true})
		p.done = true
		return nil

	case jsoniter.InvalidValue:
		if err := p.iterErr(); err != nil {
			return err
		}
		p.done = true
		return nil

	default:
		return errs.New(errs.CodeSource, "json root must be an array or an object")
	}
}

// Read returns the next row.
func (p *Parser) Read() ([]any, error) {
	if p.iter == nil && p.scanner == nil {
		return nil, errs.New(errs.CodeResource, "json parser is not open")
	}
	for len(p.pending) == 0 {
		if p.done {
			return nil, io.EOF
		}
		rec, ok, err := p.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			p.done = true
			continue
		}
		p.queue(rec)
	}
	row := p.pending[0]
	p.pending = p.pending[1:]
	p.rows++
	if p.rows%logEveryN == 0 {
		log.Printf("json: progress rows=%d", p.rows)
	}
	return row, nil
}

// next decodes one element from the active input.
func (p *Parser) next() (record, bool, error) {
	if p.lines {
		return p.nextLine()
	}
	if !p.streaming {
		return record{}, false, nil
	}
	if !p.iter.ReadArray() {
		return record{}, false, p.iterErr()
	}
	rec := readRecord(p.iter)
	return rec, true, p.iterErr()
}

func (p *Parser) nextLine() (record, bool, error) {
	for p.scanner.Scan() {
		p.lineNo++
		line := strings.TrimSpace(p.scanner.Text())
		if line == "" {
			continue
		}
		it := jsoniter.ParseString(api, line)
		rec := readRecord(it)
		if it.Error != nil && !errors.Is(it.Error, io.EOF) {
			return record{}, false, errs.New(errs.CodeSource, "json line %d: %v", p.lineNo, it.Error)
		}
		return rec, true, nil
	}
	if err := p.scanner.Err(); err != nil {
		return record{}, false, errs.Wrap(errs.CodeSource, err)
	}
	return record{}, false, nil
}

// queue converts rec into rows, emitting the header row before the first
// keyed record.
func (p *Parser) queue(rec record) {
	if !rec.keyed {
		p.pending = append(p.pending, rec.cells)
		return
	}
	if !p.started {
		p.started = true
		if len(p.header) == 0 {
			p.header = rec.keys
		}
		if p.keyed {
			head := make([]any, len(p.header))
			for i, k := range p.header {
				head[i] = k
			}
			p.pending = append(p.pending, head)
		}
	}
	row := make([]any, len(p.header))
	for i, k := range p.header {
		row[i] = rec.values[k]
	}
	p.pending = append(p.pending, row)
}

func (p *Parser) iterErr() error {
	if p.iter.Error == nil || errors.Is(p.iter.Error, io.EOF) {
		return nil
	}
	return errs.Wrap(errs.CodeSource, p.iter.Error)
}

// readRecord reads the value under it as a row.
func readRecord(it *jsoniter.Iterator) record {
	switch it.WhatIsNext() {
	case jsoniter.ObjectValue:
		rec := record{values: map[string]any{}, keyed: true}
		it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
			rec.keys = append(rec.keys, field)
			rec.values[field] = cell(it.Read())
			return true
		})
		return rec
	case jsoniter.ArrayValue:
		var cells []any
		for it.ReadArray() {
			cells = append(cells, cell(it.Read()))
		}
		if cells == nil {
			cells = []any{}
		}
		return record{cells: cells}
	default:
		return record{cells: []any{cell(it.Read())}}
	}
}

// cell narrows decoded numbers to int64 when integral.
func cell(v any) any {
	n, ok := v.(stdjson.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := n.Float64(); err == nil {
		return f
	}
	return n.String()
}

// NeedsLoader is always true.
func (p *Parser) NeedsLoader() bool { return true }

// Loader returns the byte loader.
func (p *Parser) Loader() system.Loader { return p.loader }

// Close closes the loader.
func (p *Parser) Close() error {
	p.iter, p.scanner = nil, nil
	if p.loader == nil {
		return nil
	}
	return p.loader.Close()
}
