package resource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"strings"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/schema"
)

const progressEvery = 50_000

// RowStream is one pass over the typed rows of an open resource. It tracks
// the unique and primary key values seen so far.
type RowStream struct {
	r       *Resource
	matched int
	number  int
	unique  []map[string]int
	pk      map[string]int
	started bool
	done    bool
}

// Rows streams typed rows. The sequence can be ranged once per open
// session; a closed resource is opened for the duration of the range.
// Under the raise policy the first error ends the sequence with that error.
func (r *Resource) Rows(ctx context.Context) iter.Seq2[*Row, error] {
	return func(yield func(*Row, error) bool) {
		cleanup, err := r.ensureOpen(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		defer cleanup()
		s, err := r.RowStream()
		if err != nil {
			yield(nil, err)
			return
		}
		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			row, err := s.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(row, err) || err != nil {
				return
			}
		}
	}
}

// RowStream starts the single row pass of the open session.
func (r *Resource) RowStream() (*RowStream, error) {
	if !r.open {
		return nil, errs.New(errs.CodeResource, "resource %q is not open", r.loc.Name)
	}
	if r.parser == nil {
		return nil, errNotTabular
	}
	if r.streamed {
		return nil, errs.New(errs.CodeResource, "rows of %q were already streamed; reopen the resource", r.loc.Name)
	}
	r.streamed = true
	s := &RowStream{
		r:      r,
		unique: make([]map[string]int, len(r.meta.unique)),
	}
	for i := range s.unique {
		s.unique[i] = map[string]int{}
	}
	if len(r.meta.pk) > 0 {
		s.pk = map[string]int{}
	}
	return s, nil
}

// Next returns the next emitted row, or io.EOF after the last one. Under
// the raise policy an invalid row is returned together with its first
// error and the stream ends.
func (s *RowStream) Next() (*Row, error) {
	r := s.r
	if s.done {
		return nil, io.EOF
	}
	if !s.started {
		s.started = true
		if !r.header.Valid() {
			if err := s.policy(r.header.Errors[0]); err != nil {
				s.done = true
				return nil, err
			}
		}
	}

	lim, off := r.filter.LimitRows(), r.filter.OffsetRows()
	for {
		if lim > 0 && s.number >= lim {
			s.done = true
			return nil, io.EOF
		}
		raw, err := r.cursor.next()
		if errors.Is(err, io.EOF) {
			s.done = true
			log.Printf("resource: streamed name=%s rows=%d", r.loc.Name, s.number)
			return nil, io.EOF
		}
		if err != nil {
			s.done = true
			return nil, err
		}
		s.matched++
		if s.matched <= off {
			continue
		}
		s.number++
		row := r.meta.materialize(raw, s.number)
		if !row.blank {
			s.check(row)
		}
		r.stats.Rows++
		if r.stats.Rows%progressEvery == 0 {
			log.Printf("resource: progress name=%s rows=%d", r.loc.Name, r.stats.Rows)
		}
		if !row.Valid() {
			if err := s.policy(row.Errors[0]); err != nil {
				s.done = true
				return row, err
			}
		}
		return row, nil
	}
}

// check attaches unique, primary key and foreign key errors.
func (s *RowStream) check(row *Row) {
	m := s.r.meta
	strs := make([]string, len(row.raw))
	for i, c := range row.raw {
		strs[i] = schema.Stringify(c)
	}

	for k, i := range m.unique {
		v := row.cells[i]
		if v == nil {
			continue
		}
		key := schema.Key(v)
		if first, ok := s.unique[k][key]; ok {
			row.Errors = append(row.Errors, row.err(errs.CodeUnique, m.names[i], i+1, strs,
				"the same as in the row at position %d", first))
			continue
		}
		s.unique[k][key] = row.RowPosition
	}

	if s.pk != nil {
		vals, null := row.tuple(m.pk)
		switch key := tupleKey(vals); {
		case null:
			row.Errors = append(row.Errors, row.err(errs.CodePrimaryKey, "", 0, strs,
				"cells composing the primary keys are all \"None\""))
		default:
			if first, ok := s.pk[key]; ok {
				row.Errors = append(row.Errors, row.err(errs.CodePrimaryKey, "", 0, strs,
					"the same as in the row at position %d", first))
			} else {
				s.pk[key] = row.RowPosition
			}
		}
	}

	for _, fk := range m.fks {
		set, ok := s.r.lookup.set(fk.resource, fk.target)
		if !ok {
			continue
		}
		vals, null := row.tuple(fk.local)
		if null {
			continue
		}
		if _, hit := set[tupleKey(vals)]; !hit {
			row.Errors = append(row.Errors, row.err(errs.CodeForeignKey, "", 0, strs,
				"for %q: values %q not found in the lookup table %q as %q",
				fieldNames(m, fk.local), renderTuple(vals), fk.resource, fk.target))
		}
	}
}

// policy applies the onError setting to err and returns it only when the
// stream must stop.
func (s *RowStream) policy(err error) error {
	switch s.r.opts.OnError {
	case config.OnErrorRaise:
		return err
	case config.OnErrorWarn:
		s.r.opts.warn(err)
	}
	return nil
}

// tupleKey renders typed values as a lookup key.
func tupleKey(vals []any) string {
	var b strings.Builder
	for i, v := range vals {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		b.WriteString(schema.Key(v))
	}
	return b.String()
}

func renderTuple(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = fmt.Sprint(v)
	}
	return out
}

func fieldNames(m *fieldMeta, idx []int) []string {
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = m.names[j]
	}
	return out
}
