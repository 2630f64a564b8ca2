package resource

import (
	"slices"

	"tabular/internal/errs"
	"tabular/internal/schema"
)

// Row is one typed record of the stream.
type Row struct {
	// RowPosition is the 1-based position of the row in the source.
	RowPosition int
	// RowNumber is the 1-based position among emitted rows.
	RowNumber int
	Errors    []*errs.Error

	meta  *fieldMeta
	cells []any
	raw   []any
	blank bool
}

// Valid reports whether no errors are attached.
func (r *Row) Valid() bool { return len(r.Errors) == 0 }

// Get returns the typed value of the named field, or nil.
func (r *Row) Get(name string) any {
	i, ok := r.meta.index[name]
	if !ok {
		return nil
	}
	return r.cells[i]
}

// Cells returns the typed values in field order.
func (r *Row) Cells() []any { return slices.Clone(r.cells) }

// Raw returns the source cells at the field positions, before casting.
func (r *Row) Raw() []any { return slices.Clone(r.raw) }

// FieldNames returns the schema field names.
func (r *Row) FieldNames() []string { return slices.Clone(r.meta.names) }

// Map returns the typed values keyed by field name.
func (r *Row) Map() map[string]any {
	out := make(map[string]any, len(r.cells))
	for i, name := range r.meta.names {
		out[name] = r.cells[i]
	}
	return out
}

// fieldMeta is the per-session data every row shares.
type fieldMeta struct {
	names     []string
	fields    []schema.Field
	positions []int
	index     map[string]int
	missing   []string
	// extraFrom is the raw width past which cells are extra; 0 disables the
	// check when fields are filtered.
	extraFrom int

	unique []int
	pk     []int
	fks    []fkMeta
}

type fkMeta struct {
	local    []int
	resource string
	target   []string
}

func newFieldMeta(sch *schema.Schema, positions []int, filtering bool) *fieldMeta {
	m := &fieldMeta{
		names:     sch.FieldNames(),
		fields:    slices.Clone(sch.Fields),
		positions: positions[:min(len(positions), len(sch.Fields))],
		index:     make(map[string]int, len(sch.Fields)),
		missing:   sch.Missing(),
	}
	for i, f := range m.fields {
		m.index[f.Name] = i
		if f.Constraints.Unique {
			m.unique = append(m.unique, i)
		}
	}
	if !filtering && len(m.positions) > 0 {
		m.extraFrom = slices.Max(m.positions)
	}
	for _, name := range sch.PrimaryKey {
		m.pk = append(m.pk, m.index[name])
	}
	for _, fk := range sch.ForeignKeys {
		fm := fkMeta{resource: fk.Reference.Resource, target: fk.Reference.Fields}
		for _, name := range fk.Fields {
			fm.local = append(fm.local, m.index[name])
		}
		m.fks = append(m.fks, fm)
	}
	return m
}

// materialize casts raw cells into a row and attaches cell-level errors.
func (m *fieldMeta) materialize(raw rawRow, number int) *Row {
	row := &Row{
		RowPosition: raw.position,
		RowNumber:   number,
		meta:        m,
		cells:       make([]any, len(m.fields)),
		raw:         make([]any, len(m.fields)),
	}
	strs := make([]string, len(raw.cells))
	blank := true
	for i, c := range raw.cells {
		strs[i] = schema.Stringify(c)
		if strs[i] != "" {
			blank = false
		}
	}
	for i, p := range m.positions {
		if p <= len(raw.cells) {
			row.raw[i] = raw.cells[p-1]
		}
	}
	if blank {
		row.blank = true
		row.Errors = append(row.Errors, row.err(errs.CodeBlankRow, "", 0, strs, "row is completely blank"))
		return row
	}

	for i, f := range m.fields {
		p := m.positions[i]
		if p > len(raw.cells) {
			row.Errors = append(row.Errors, row.err(errs.CodeMissingCell, f.Name, i+1, strs, "row has no cell for this field"))
			continue
		}
		cell := raw.cells[p-1]
		v, ok := f.ReadCell(cell, m.missing)
		if !ok {
			row.Errors = append(row.Errors, row.err(errs.CodeType, f.Name, i+1, strs, "cell %q is not of type %q", schema.Stringify(cell), f.Type))
			continue
		}
		row.cells[i] = v
		if v == nil && f.Constraints.Required {
			row.Errors = append(row.Errors, row.err(errs.CodeConstraint, f.Name, i+1, strs, "constraint \"required\" is \"true\""))
		}
	}
	if m.extraFrom > 0 {
		for p := m.extraFrom + 1; p <= len(raw.cells); p++ {
			row.Errors = append(row.Errors, row.err(errs.CodeExtraCell, "", p, strs, "cell %q has no field", strs[p-1]))
		}
	}
	return row
}

func (r *Row) err(code errs.Code, field string, number int, cells []string, format string, args ...any) *errs.Error {
	e := errs.New(code, format, args...)
	e.RowPosition = r.RowPosition
	e.RowNumber = r.RowNumber
	e.FieldName = field
	e.FieldNumber = number
	e.Cells = cells
	return e
}

// tuple returns the typed values at idx and whether all are nil.
func (r *Row) tuple(idx []int) ([]any, bool) {
	out := make([]any, len(idx))
	null := true
	for i, j := range idx {
		out[i] = r.cells[j]
		if out[i] != nil {
			null = false
		}
	}
	return out, null
}
