// Package xmlparser registers the xml format. Each record element becomes
// one row. With fields/lists options, values are picked by relative path;
// otherwise the direct children of the record become columns in the order
// they first appear. A header row of column names precedes the values.
package xmlparser

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"log"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/system"
)

// Dialect option keys.
const (
	// OptRecordTag names the record element. When unset, the first child
	// of the document root is used.
	OptRecordTag = "recordTag"
	OptFields    = "fields"
	OptLists     = "lists"
)

const logEveryN = 50_000

func init() {
	system.Default.RegisterParser("xml", system.ParserEntry{
		NeedsLoader: true,
		New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
			return New(spec, l), nil
		},
	})
}

type frame struct {
	name  string
	attrs []xml.Attr
	text  strings.Builder
}

// Parser pulls records from an encoding/xml token stream.
type Parser struct {
	spec   system.Spec
	loader system.Loader

	dec     *xml.Decoder
	comp    Compiled
	header  []string
	started bool
	pending [][]any

	depth    int
	inRecord bool
	stack    []*frame
	keys     []string
	values   map[string]any
	rows     int
}

// New returns an unopened parser.
func New(spec system.Spec, l system.Loader) *Parser {
	return &Parser{spec: spec, loader: l}
}

// Open opens the loader and compiles the path configuration.
func (p *Parser) Open(ctx context.Context) error {
	comp, err := Compile(configFrom(p.spec.Dialect.Options()))
	if err != nil {
		return errs.Wrap(errs.CodeDialect, err)
	}
	if err := p.loader.Open(ctx); err != nil {
		return err
	}
	p.comp = comp
	p.header = comp.Keys()
	p.started = false
	p.pending = nil
	p.depth, p.inRecord, p.stack, p.rows = 0, false, nil, 0

	p.dec = xml.NewDecoder(p.loader.TextStream())
	// The text stream is already UTF-8.
	p.dec.CharsetReader = func(_ string, r io.Reader) (io.Reader, error) { return r, nil }
	return nil
}

// Read returns the next row.
func (p *Parser) Read() ([]any, error) {
	if p.dec == nil {
		return nil, errs.New(errs.CodeResource, "xml parser is not open")
	}
	for len(p.pending) == 0 {
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	row := p.pending[0]
	p.pending = p.pending[1:]
	p.rows++
	if p.rows%logEveryN == 0 {
		log.Printf("xml: progress rows=%d", p.rows)
	}
	return row, nil
}

// advance consumes tokens until one record is complete.
func (p *Parser) advance() error {
	for {
		tok, err := p.dec.Token()
		if errors.Is(err, io.EOF) {
			if p.inRecord {
				return errs.New(errs.CodeSource, "xml record <%s> is truncated", p.comp.recordTag)
			}
			return io.EOF
		}
		if err != nil {
			return errs.Wrap(errs.CodeSource, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			p.depth++
			if !p.inRecord {
				if p.comp.recordTag == "" && p.depth == 2 {
					p.comp.recordTag = t.Name.Local
				}
				if t.Name.Local == p.comp.recordTag {
					p.inRecord = true
					p.stack = p.stack[:0]
					p.keys = nil
					p.values = map[string]any{}
				}
				continue
			}
			p.stack = append(p.stack, &frame{name: t.Name.Local, attrs: t.Attr})

		case xml.CharData:
			if p.inRecord && len(p.stack) > 0 {
				p.stack[len(p.stack)-1].text.Write(t)
			}

		case xml.EndElement:
			p.depth--
			if !p.inRecord {
				continue
			}
			if len(p.stack) == 0 {
				p.inRecord = false
				p.emit()
				return nil
			}
			top := p.stack[len(p.stack)-1]
			p.collect(top)
			p.stack = p.stack[:len(p.stack)-1]
		}
	}
}

// collect stores the text of a closed element under every matching key.
func (p *Parser) collect(f *frame) {
	text := strings.Join(strings.Fields(f.text.String()), " ")
	if p.comp.Empty() {
		if len(p.stack) == 1 {
			p.set(f.name, text, false)
		}
		return
	}
	rel := make([]string, len(p.stack))
	for i, fr := range p.stack {
		rel[i] = fr.name
	}
	for _, m := range p.comp.byLast[f.name] {
		if !tailMatches(rel, m.spec) {
			continue
		}
		last := m.spec.segs[len(m.spec.segs)-1]
		if last.attrName != "" && attr(f.attrs, last.attrName) != last.attrVal {
			continue
		}
		p.set(m.outKey, text, m.isList)
	}
}

func (p *Parser) set(key, text string, list bool) {
	prev, seen := p.values[key]
	if !seen {
		p.keys = append(p.keys, key)
	}
	switch {
	case list:
		vals, _ := prev.([]any)
		p.values[key] = append(vals, text)
	case !seen:
		p.values[key] = text
	}
}

func (p *Parser) emit() {
	if !p.started {
		p.started = true
		if len(p.header) == 0 {
			p.header = p.keys
		}
		head := make([]any, len(p.header))
		for i, k := range p.header {
			head[i] = k
		}
		p.pending = append(p.pending, head)
	}
	row := make([]any, len(p.header))
	for i, k := range p.header {
		row[i] = p.values[k]
	}
	p.pending = append(p.pending, row)
}

func attr(attrs []xml.Attr, name string) string {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// NeedsLoader is always true.
func (p *Parser) NeedsLoader() bool { return true }

// Loader returns the byte loader.
func (p *Parser) Loader() system.Loader { return p.loader }

// Close closes the loader.
func (p *Parser) Close() error {
	p.dec = nil
	if p.loader == nil {
		return nil
	}
	return p.loader.Close()
}
