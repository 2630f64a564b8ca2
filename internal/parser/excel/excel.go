// Package excel registers the xlsx format using excelize. The workbook is a
// zip archive, so excelize buffers the whole byte stream before rows can be
// iterated; rows themselves are then pulled one at a time.
package excel

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"tabular/internal/errs"
	"tabular/internal/system"
)

// Dialect option keys.
const (
	// OptSheet selects a worksheet by name or 1-based index.
	OptSheet = "sheet"
	// OptFillMergedCells copies a merged range's value into every cell of
	// the range.
	OptFillMergedCells = "fillMergedCells"
	// OptPreserveFormatting returns cells as displayed instead of raw values.
	OptPreserveFormatting = "preserveFormatting"
)

func init() {
	for _, format := range []string{"xlsx", "xlsm"} {
		system.Default.RegisterParser(format, system.ParserEntry{
			NeedsLoader: true,
			New: func(spec system.Spec, l system.Loader) (system.Parser, error) {
				return New(spec, l), nil
			},
		})
	}
}

// Parser reads one worksheet.
type Parser struct {
	spec   system.Spec
	loader system.Loader

	book   *excelize.File
	rows   *excelize.Rows
	opts   excelize.Options
	merged map[[2]int]string
	rowNo  int
}

// New returns an unopened parser.
func New(spec system.Spec, l system.Loader) *Parser {
	return &Parser{spec: spec, loader: l}
}

// Open loads the workbook and positions the iterator on the chosen sheet.
func (p *Parser) Open(ctx context.Context) error {
	if err := p.loader.Open(ctx); err != nil {
		return err
	}
	opt := p.spec.Dialect.Options()

	book, err := excelize.OpenReader(p.loader.ByteStream())
	if err != nil {
		return errs.New(errs.CodeSource, "open xlsx workbook: %v", err)
	}
	sheet, err := pickSheet(book.GetSheetList(), opt.Any(OptSheet))
	if err != nil {
		_ = book.Close()
		return err
	}
	rows, err := book.Rows(sheet)
	if err != nil {
		_ = book.Close()
		return errs.New(errs.CodeSource, "open rows of sheet %q: %v", sheet, err)
	}

	p.merged = nil
	if opt.Bool(OptFillMergedCells, false) {
		if p.merged, err = mergedValues(book, sheet); err != nil {
			_ = rows.Close()
			_ = book.Close()
			return err
		}
	}
	p.book, p.rows = book, rows
	p.opts = excelize.Options{RawCellValue: !opt.Bool(OptPreserveFormatting, false)}
	p.rowNo = 0
	return nil
}

// pickSheet resolves a sheet option: nil selects the first sheet, numbers
// and numeric strings are 1-based indexes, other strings are names.
func pickSheet(sheets []string, want any) (string, error) {
	if len(sheets) == 0 {
		return "", errs.New(errs.CodeSource, "workbook has no sheets")
	}
	index := 0
	switch v := want.(type) {
	case nil:
		return sheets[0], nil
	case float64:
		index = int(v)
	case int:
		index = v
	case string:
		for _, s := range sheets {
			if s == v {
				return s, nil
			}
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return "", errs.New(errs.CodeDialect, "sheet %q not found", v)
		}
		index = n
	default:
		return "", errs.New(errs.CodeDialect, "sheet must be a name or an index, got %T", want)
	}
	if index < 1 || index > len(sheets) {
		return "", errs.New(errs.CodeDialect, "sheet index %d out of range 1..%d", index, len(sheets))
	}
	return sheets[index-1], nil
}

// mergedValues maps every cell covered by a merged range to the range's
// value.
func mergedValues(book *excelize.File, sheet string) (map[[2]int]string, error) {
	ranges, err := book.GetMergeCells(sheet)
	if err != nil {
		return nil, errs.New(errs.CodeSource, "read merged cells: %v", err)
	}
	out := map[[2]int]string{}
	for _, mc := range ranges {
		c1, r1, err := excelize.CellNameToCoordinates(mc.GetStartAxis())
		if err != nil {
			return nil, errs.Wrap(errs.CodeSource, err)
		}
		c2, r2, err := excelize.CellNameToCoordinates(mc.GetEndAxis())
		if err != nil {
			return nil, errs.Wrap(errs.CodeSource, err)
		}
		for r := r1; r <= r2; r++ {
			for c := c1; c <= c2; c++ {
				out[[2]int{r, c}] = mc.GetCellValue()
			}
		}
	}
	return out, nil
}

// Read returns the next worksheet row as string cells.
func (p *Parser) Read() ([]any, error) {
	if p.rows == nil {
		return nil, errs.New(errs.CodeResource, "xlsx parser is not open")
	}
	if !p.rows.Next() {
		if err := p.rows.Error(); err != nil {
			return nil, errs.Wrap(errs.CodeSource, err)
		}
		return nil, io.EOF
	}
	p.rowNo++
	cols, err := p.rows.Columns(p.opts)
	if err != nil {
		return nil, errs.New(errs.CodeSource, "read xlsx row %d: %v", p.rowNo, err)
	}
	if len(p.merged) > 0 {
		cols = p.fill(cols)
	}
	cells := make([]any, len(cols))
	for i, v := range cols {
		cells[i] = v
	}
	return cells, nil
}

func (p *Parser) fill(cols []string) []string {
	for k, v := range p.merged {
		if k[0] != p.rowNo {
			continue
		}
		for len(cols) < k[1] {
			cols = append(cols, "")
		}
		cols[k[1]-1] = v
	}
	return cols
}

// NeedsLoader is always true.
func (p *Parser) NeedsLoader() bool { return true }

// Loader returns the byte loader.
func (p *Parser) Loader() system.Loader { return p.loader }

// Close releases the workbook and the loader.
func (p *Parser) Close() error {
	var first error
	if p.rows != nil {
		first = p.rows.Close()
		p.rows = nil
	}
	if p.book != nil {
		if err := p.book.Close(); err != nil && first == nil {
			first = fmt.Errorf("close workbook: %w", err)
		}
		p.book = nil
	}
	if p.loader != nil {
		if err := p.loader.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
