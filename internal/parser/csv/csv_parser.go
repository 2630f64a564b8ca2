// Package csv registers the csv and tsv formats. Rows are pulled one record
// at a time from encoding/csv over the loader's text stream, so inputs of any
// size are read in constant memory.
package csv

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"log"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/system"
)

// Dialect option keys.
const (
	OptDelimiter        = "delimiter"
	OptCommentChar      = "commentChar"
	OptSkipInitialSpace = "skipInitialSpace"
	OptLazyQuotes       = "lazyQuotes"
	OptTrimSpace        = "trimSpace"
	// OptReplace maps byte sequences to rewrite before parsing, for sources
	// with known broken quoting.
	OptReplace = "replace"
)

const logEveryN = 50_000

func init() {
	for format, comma := range map[string]rune{"csv": ',', "tsv": '\t'} {
		system.Default.RegisterParser(format, system.ParserEntry{
			NeedsLoader: true,
			New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
				return New(spec, l, comma), nil
			},
		})
	}
}

// Parser reads delimited text.
type Parser struct {
	spec   system.Spec
	loader system.Loader
	comma  rune
	trim   bool

	cr   *csv.Reader
	rows int
}

// New returns an unopened parser. comma is the format default; the
// delimiter dialect option overrides it.
func New(spec system.Spec, l system.Loader, comma rune) *Parser {
	return &Parser{spec: spec, loader: l, comma: comma}
}

// Open opens the loader and positions the reader at the first record.
func (p *Parser) Open(ctx context.Context) error {
	if err := p.loader.Open(ctx); err != nil {
		return err
	}
	opt := p.spec.Dialect.Options()

	var r io.Reader = p.loader.TextStream()
	if pairs := opt.StringMap(OptReplace); len(pairs) > 0 {
		r = withReplacements(r, pairs)
	}

	cr := csv.NewReader(r)
	cr.Comma = opt.Rune(OptDelimiter, p.comma)
	cr.Comment = opt.Rune(OptCommentChar, 0)
	cr.TrimLeadingSpace = opt.Bool(OptSkipInitialSpace, false)
	cr.LazyQuotes = opt.Bool(OptLazyQuotes, false)
	cr.FieldsPerRecord = -1
	if cr.Comma == cr.Comment || cr.Comma == '"' || cr.Comma == '\r' || cr.Comma == '\n' {
		return errs.New(errs.CodeDialect, "invalid delimiter %q", cr.Comma)
	}
	p.cr = cr
	p.trim = opt.Bool(OptTrimSpace, false)
	p.rows = 0
	return nil
}

// Read returns the next record as string cells.
func (p *Parser) Read() ([]any, error) {
	if p.cr == nil {
		return nil, errs.New(errs.CodeResource, "csv parser is not open")
	}
	rec, err := p.cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, io.EOF
	}
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, errs.Wrap(errs.CodeSource, err)
		}
		return nil, err
	}
	cells := make([]any, len(rec))
	for i, v := range rec {
		if p.trim {
			v = strings.TrimSpace(v)
		}
		cells[i] = v
	}
	p.rows++
	if p.rows%logEveryN == 0 {
		log.Printf("csv: progress rows=%d", p.rows)
	}
	return cells, nil
}

// NeedsLoader is always true.
func (p *Parser) NeedsLoader() bool { return true }

// Loader returns the byte loader.
func (p *Parser) Loader() system.Loader { return p.loader }

// Close closes the loader.
func (p *Parser) Close() error {
	p.cr = nil
	if p.loader == nil {
		return nil
	}
	return p.loader.Close()
}
