package resource

import (
	"errors"
	"io"
	"math"
	"slices"
	"strconv"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/query"
	"tabular/internal/schema"
	"tabular/internal/system"
)

// rawRow is a parser row tagged with its 1-based source position.
type rawRow struct {
	position int
	cells    []any
}

// cursor pulls rows from a parser exactly once. Rows buffered during
// sampling sit in pending and are replayed before the parser is read again.
type cursor struct {
	parser   system.Parser
	filter   *query.Filter
	position int
	pending  []rawRow
	done     bool
}

func newCursor(p system.Parser, f *query.Filter) *cursor {
	return &cursor{parser: p, filter: f}
}

// read returns the next source row that passes the pick/skip row filter,
// bypassing the replay queue.
func (c *cursor) read() (rawRow, error) {
	for !c.done {
		cells, err := c.parser.Read()
		if errors.Is(err, io.EOF) {
			c.done = true
			break
		}
		if err != nil {
			return rawRow{}, err
		}
		c.position++
		if c.filter.FilteringRows() && !c.filter.MatchRow(c.position, cells) {
			continue
		}
		return rawRow{position: c.position, cells: cells}, nil
	}
	return rawRow{}, io.EOF
}

// next replays pending rows, then continues with the parser.
func (c *cursor) next() (rawRow, error) {
	if len(c.pending) > 0 {
		row := c.pending[0]
		c.pending = c.pending[1:]
		return row, nil
	}
	return c.read()
}

// fill reads until pending holds n rows or the source ends.
func (c *cursor) fill(n int) error {
	for len(c.pending) < n {
		row, err := c.read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		c.pending = append(c.pending, row)
	}
	return nil
}

// detect buffers the head of the stream and settles the dialect header,
// labels, field positions, sample and schema.
func (r *Resource) detect() error {
	c := r.cursor
	if err := c.fill(r.opts.bufferSize()); err != nil {
		return err
	}

	if !r.declared.HeaderSet() {
		if n := inferHeaderRow(c.pending); n > 0 {
			r.dialect = r.dialect.WithHeader(true)
			if n != 1 {
				r.dialect = r.dialect.WithHeaderRows([]int{n})
			}
		} else {
			r.dialect = r.dialect.WithHeader(false)
		}
	}

	var labels []string
	var headerPs []int
	if r.dialect.Header() {
		rows := r.dialect.HeaderRows()
		last := slices.Max(rows)
		if err := c.fill(last); err != nil {
			return err
		}
		labels, headerPs = joinHeader(c.pending, rows, r.dialect.HeaderJoin())
		c.pending = c.pending[min(last, len(c.pending)):]
	}

	width := len(labels)
	if len(c.pending) > 0 && len(labels) == 0 {
		width = len(c.pending[0].cells)
	}
	positions, kept := r.filter.FilterFields(labels, width)

	// The sample follows the row offset and limit so that it matches the
	// head of the row stream.
	offset := r.filter.OffsetRows()
	size := r.opts.sampleSize()
	if lim := r.filter.LimitRows(); lim > 0 && lim < size {
		size = lim
	}
	if err := c.fill(offset + size); err != nil {
		return err
	}
	r.sample, r.samplePs = nil, nil
	if offset < len(c.pending) {
		for _, row := range c.pending[offset:min(offset+size, len(c.pending))] {
			r.sample = append(r.sample, narrow(row.cells, positions))
			r.samplePs = append(r.samplePs, row.position)
		}
	}

	if err := r.settleSchema(kept, positions); err != nil {
		return err
	}
	r.labels = kept
	r.header = newHeader(kept, r.fieldPs, headerPs, r.schema, r.dialect.HeaderCase(), r.dialect.Header())
	return nil
}

// settleSchema infers, syncs and patches the schema, then aligns field
// positions with it.
func (r *Resource) settleSchema(labels []string, positions []int) error {
	sch := r.schema
	if sch.Empty() {
		names := labels
		if names == nil {
			names = make([]string, len(positions))
		}
		d := r.opts.Detect
		missing := d.FieldMissingValues
		if missing == nil && sch != nil {
			missing = sch.MissingValues
		}
		inferred := schema.Infer(names, r.sample, schema.InferOptions{
			TypeHint:      d.FieldType,
			NameHint:      d.FieldNames,
			Confidence:    d.FieldConfidence,
			FloatNumbers:  d.FieldFloatNumbers,
			MissingValues: missing,
		})
		// Keys declared without fields survive inference.
		if sch != nil {
			inferred.PrimaryKey = slices.Clone(sch.PrimaryKey)
			inferred.ForeignKeys = slices.Clone(sch.ForeignKeys)
		}
		sch = inferred
	} else if r.opts.SyncSchema && labels != nil {
		sch = sch.Sync(labels)
	}
	if len(r.opts.SchemaPatch) > 0 {
		patched, err := sch.Patch(r.opts.SchemaPatch)
		if err != nil {
			return err
		}
		sch = patched
	}
	if err := sch.Validate(); err != nil {
		return err
	}

	fieldPs := slices.Clone(positions)
	// A declared schema may name more fields than the source has columns.
	next := 1
	if len(fieldPs) > 0 {
		next = fieldPs[len(fieldPs)-1] + 1
	}
	for len(fieldPs) < len(sch.Fields) {
		fieldPs = append(fieldPs, next)
		next++
	}
	r.schema = sch
	r.fieldPs = fieldPs
	r.stats.Fields = len(sch.Fields)
	return nil
}

// inferHeaderRow returns the 1-based index of the first buffered row that
// looks like a header, or 0. A header row has a width within 10% (at least
// one cell) of the rounded mean width and holds only non-numeric text.
func inferHeaderRow(rows []rawRow) int {
	if len(rows) == 0 {
		return 0
	}
	total := 0
	for _, row := range rows {
		total += len(row.cells)
	}
	mean := int(math.Round(float64(total) / float64(len(rows))))
	drift := max(int(math.Round(float64(mean)*0.1)), 1)
	for i, row := range rows {
		if w := len(row.cells); w < mean-drift || w > mean+drift {
			continue
		}
		if stringLike(row.cells) {
			return i + 1
		}
	}
	return 0
}

func stringLike(cells []any) bool {
	nonEmpty := false
	for _, c := range cells {
		switch v := c.(type) {
		case nil:
		case string:
			s := strings.TrimSpace(v)
			if s == "" {
				continue
			}
			if _, err := strconv.ParseFloat(s, 64); err == nil {
				return false
			}
			nonEmpty = true
		default:
			return false
		}
	}
	return nonEmpty
}

// joinHeader merges the designated header rows into labels. Rows are
// 1-based indexes into buffered; a label repeated from the row above (as
// merged cells produce) is not joined twice.
func joinHeader(buffered []rawRow, rows []int, sep string) ([]string, []int) {
	var labels []string
	var positions []int
	prev := map[int]string{}
	for _, n := range rows {
		if n < 1 || n > len(buffered) {
			continue
		}
		row := buffered[n-1]
		positions = append(positions, row.position)
		for i, c := range row.cells {
			cell := strings.TrimSpace(schema.Stringify(c))
			if i >= len(labels) {
				labels = append(labels, cell)
				prev[i] = cell
				continue
			}
			if cell == "" || cell == prev[i] {
				continue
			}
			prev[i] = cell
			if labels[i] == "" {
				labels[i] = cell
			} else {
				labels[i] += sep + cell
			}
		}
	}
	return labels, positions
}

// narrow picks cells at 1-based positions; absent cells become nil.
func narrow(cells []any, positions []int) []any {
	out := make([]any, len(positions))
	for i, p := range positions {
		if p <= len(cells) {
			out[i] = cells[p-1]
		}
	}
	return out
}

var errNotTabular = errs.New(errs.CodeResource, "resource is open in file mode")
