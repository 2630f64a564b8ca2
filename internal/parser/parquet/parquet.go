// Package parquet registers the parquet format. Parquet keeps its metadata
// in a footer, so the whole byte stream is buffered before rows are read.
// Nested columns are flattened: a column's header is its dotted leaf path
// and repeated leaves become lists.
package parquet

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tabular/internal/errs"
	"tabular/internal/system"
)

const batchSize = 128

func init() {
	system.Default.RegisterParser("parquet", system.ParserEntry{
		NeedsLoader: true,
		New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
			return New(spec, l), nil
		},
	})
}

// Parser reads a parquet file row by row.
type Parser struct {
	spec   system.Spec
	loader system.Loader

	reader  *parquet.Reader
	leaves  []parquet.LeafColumn
	header  []any
	buf     []parquet.Row
	pos     int
	n       int
	eof     bool
	started bool
}

// New returns an unopened parser.
func New(spec system.Spec, l system.Loader) *Parser {
	return &Parser{spec: spec, loader: l}
}

// Open buffers the file and reads its schema.
func (p *Parser) Open(ctx context.Context) error {
	if err := p.loader.Open(ctx); err != nil {
		return err
	}
	data, err := io.ReadAll(p.loader.ByteStream())
	if err != nil {
		return errs.Wrap(errs.CodeSource, err)
	}
	if len(data) == 0 {
		return errs.New(errs.CodeSource, "parquet file is empty")
	}
	file, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return errs.New(errs.CodeSource, "open parquet file: %v", err)
	}

	schema := file.Schema()
	p.leaves = p.leaves[:0]
	p.header = p.header[:0]
	for _, path := range schema.Columns() {
		leaf, ok := schema.Lookup(path...)
		if !ok {
			return errs.New(errs.CodeSource, "parquet column %q not found", strings.Join(path, "."))
		}
		p.leaves = append(p.leaves, leaf)
		p.header = append(p.header, strings.Join(path, "."))
	}
	p.reader = parquet.NewReader(file)
	p.buf = make([]parquet.Row, batchSize)
	p.pos, p.n = 0, 0
	p.eof, p.started = false, false
	return nil
}

// Read returns the header row first, then one row per record.
func (p *Parser) Read() ([]any, error) {
	if p.reader == nil {
		return nil, errs.New(errs.CodeResource, "parquet parser is not open")
	}
	if !p.started {
		p.started = true
		return append([]any(nil), p.header...), nil
	}
	if p.pos >= p.n {
		if p.eof {
			return nil, io.EOF
		}
		n, err := p.reader.ReadRows(p.buf)
		p.pos, p.n = 0, n
		if errors.Is(err, io.EOF) {
			p.eof = true
		} else if err != nil {
			return nil, errs.New(errs.CodeSource, "read parquet rows: %v", err)
		}
		if n == 0 {
			return nil, io.EOF
		}
	}
	row := p.buf[p.pos]
	p.pos++
	return p.cells(row), nil
}

func (p *Parser) cells(row parquet.Row) []any {
	out := make([]any, len(p.leaves))
	for _, v := range row {
		idx := v.Column()
		if idx < 0 || idx >= len(p.leaves) {
			continue
		}
		leaf := p.leaves[idx]
		if v.IsNull() {
			continue
		}
		cell := convert(v, leaf.Node)
		if leaf.MaxRepetitionLevel > 0 {
			list, _ := out[idx].([]any)
			out[idx] = append(list, cell)
			continue
		}
		out[idx] = cell
	}
	return out
}

// convert maps a physical value to a Go value, honoring string, date and
// timestamp annotations.
func convert(v parquet.Value, node parquet.Node) any {
	lt := node.Type().LogicalType()
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		if lt != nil && lt.Date != nil {
			return time.Unix(int64(v.Int32())*86400, 0).UTC()
		}
		return int64(v.Int32())
	case parquet.Int64:
		if lt != nil && lt.Timestamp != nil {
			switch {
			case lt.Timestamp.Unit.Millis != nil:
				return time.UnixMilli(v.Int64()).UTC()
			case lt.Timestamp.Unit.Micros != nil:
				return time.UnixMicro(v.Int64()).UTC()
			default:
				return time.Unix(0, v.Int64()).UTC()
			}
		}
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return fmt.Sprint(v)
	}
}

// NeedsLoader is always true.
func (p *Parser) NeedsLoader() bool { return true }

// Loader returns the byte loader.
func (p *Parser) Loader() system.Loader { return p.loader }

// Close releases the reader and the loader.
func (p *Parser) Close() error {
	var first error
	if p.reader != nil {
		first = p.reader.Close()
		p.reader = nil
	}
	if p.loader != nil {
		if err := p.loader.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
