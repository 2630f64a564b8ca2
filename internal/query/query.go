// Package query implements the declarative row/field inclusion filter applied
// to both the sample and the full stream of a resource.
//
// A Query is a plain value decoded from JSON. Compile validates it once and
// returns a *Filter whose Match methods are cheap enough for the hot path.
package query

import (
	"fmt"
	"regexp"
	"strings"

	"tabular/internal/errs"
)

// Blank matches an empty label or an all-empty row.
const Blank = "<blank>"

// regexPrefix marks a string entry as a regular expression.
const regexPrefix = "<regex>"

// Query is the filter specification. Entries in the pick/skip lists may be
// strings, integer positions (1-based), Blank, or "<regex>pattern".
type Query struct {
	PickFields   []any `json:"pickFields,omitempty"`
	SkipFields   []any `json:"skipFields,omitempty"`
	LimitFields  int   `json:"limitFields,omitempty"`
	OffsetFields int   `json:"offsetFields,omitempty"`
	PickRows     []any `json:"pickRows,omitempty"`
	SkipRows     []any `json:"skipRows,omitempty"`
	LimitRows    int   `json:"limitRows,omitempty"`
	OffsetRows   int   `json:"offsetRows,omitempty"`
}

// IsZero reports whether q filters nothing.
func (q Query) IsZero() bool {
	return len(q.PickFields) == 0 && len(q.SkipFields) == 0 &&
		q.LimitFields == 0 && q.OffsetFields == 0 &&
		len(q.PickRows) == 0 && len(q.SkipRows) == 0 &&
		q.LimitRows == 0 && q.OffsetRows == 0
}

type entryKind int

const (
	entryBlank entryKind = iota
	entryString
	entryPosition
	entryRegex
)

type entry struct {
	kind entryKind
	str  string
	pos  int
	re   *regexp.Regexp
}

// Filter is a compiled Query.
type Filter struct {
	q          Query
	pickFields []entry
	skipFields []entry
	pickRows   []entry
	skipRows   []entry
}

// Compile validates q and precompiles its entries. Malformed entries, bad
// patterns and negative limits are reported as query errors.
func Compile(q Query) (*Filter, error) {
	f := &Filter{q: q}
	var err error
	if f.pickFields, err = compileEntries("pickFields", q.PickFields); err != nil {
		return nil, err
	}
	if f.skipFields, err = compileEntries("skipFields", q.SkipFields); err != nil {
		return nil, err
	}
	if f.pickRows, err = compileEntries("pickRows", q.PickRows); err != nil {
		return nil, err
	}
	if f.skipRows, err = compileEntries("skipRows", q.SkipRows); err != nil {
		return nil, err
	}
	for name, v := range map[string]int{
		"limitFields":  q.LimitFields,
		"offsetFields": q.OffsetFields,
		"limitRows":    q.LimitRows,
		"offsetRows":   q.OffsetRows,
	} {
		if v < 0 {
			return nil, errs.New(errs.CodeQuery, "%s must be >= 0, got %d", name, v)
		}
	}
	return f, nil
}

func compileEntries(name string, raw []any) ([]entry, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	out := make([]entry, 0, len(raw))
	for i, v := range raw {
		switch x := v.(type) {
		case string:
			switch {
			case x == Blank:
				out = append(out, entry{kind: entryBlank})
			case strings.HasPrefix(x, regexPrefix):
				re, err := regexp.Compile("^(?:" + strings.TrimPrefix(x, regexPrefix) + ")")
				if err != nil {
					e := errs.New(errs.CodeQuery, "%s[%d]: bad pattern: %v", name, i, err)
					e.Err = err
					return nil, e
				}
				out = append(out, entry{kind: entryRegex, re: re})
			default:
				out = append(out, entry{kind: entryString, str: x})
			}
		case int:
			out = append(out, entry{kind: entryPosition, pos: x})
		case int64:
			out = append(out, entry{kind: entryPosition, pos: int(x)})
		case float64:
			// JSON numbers.
			if x != float64(int(x)) {
				return nil, errs.New(errs.CodeQuery, "%s[%d]: position must be an integer, got %v", name, i, x)
			}
			out = append(out, entry{kind: entryPosition, pos: int(x)})
		default:
			return nil, errs.New(errs.CodeQuery, "%s[%d]: unsupported entry type %T", name, i, v)
		}
	}
	return out, nil
}

// Query returns the uncompiled specification.
func (f *Filter) Query() Query { return f.q }

// FilteringFields reports whether any field-level option is set.
func (f *Filter) FilteringFields() bool {
	return len(f.pickFields) > 0 || len(f.skipFields) > 0 || f.q.LimitFields > 0 || f.q.OffsetFields > 0
}

// FilteringRows reports whether pick/skip row entries are set.
func (f *Filter) FilteringRows() bool {
	return len(f.pickRows) > 0 || len(f.skipRows) > 0
}

// LimitRows returns the row limit; 0 means unlimited.
func (f *Filter) LimitRows() int { return f.q.LimitRows }

// OffsetRows returns the number of matching rows to skip before emitting.
func (f *Filter) OffsetRows() int { return f.q.OffsetRows }

// MatchField applies pick/skip field entries to the field at the given
// 1-based position with the given label.
func (f *Filter) MatchField(position int, label string) bool {
	return toggle(f.pickFields, f.skipFields, func(e entry) bool {
		switch e.kind {
		case entryBlank:
			return label == ""
		case entryString:
			return e.str == label
		case entryPosition:
			return e.pos == position
		case entryRegex:
			return e.re.MatchString(label)
		}
		return false
	})
}

// MatchRow applies pick/skip row entries to the raw cells at the given
// 1-based source position.
func (f *Filter) MatchRow(position int, cells []any) bool {
	return toggle(f.pickRows, f.skipRows, func(e entry) bool {
		return rowHit(e, position, cells)
	})
}

// toggle starts from a match; a non-empty pick set resets it to false and
// flips it on the first hit, then a non-empty skip set flips it to false on
// the first hit. A pick miss is final.
func toggle(pick, skip []entry, hit func(entry) bool) bool {
	match := true
	if len(pick) > 0 {
		match = false
		for _, e := range pick {
			if hit(e) {
				match = true
				break
			}
		}
	}
	if !match || len(skip) == 0 {
		return match
	}
	for _, e := range skip {
		if hit(e) {
			return false
		}
	}
	return true
}

// FilterFields applies pick/skip followed by offset/limit to a label list and
// returns the kept 1-based positions and labels. When labels is empty, width
// positions are considered with empty labels.
func (f *Filter) FilterFields(labels []string, width int) ([]int, []string) {
	n := len(labels)
	if n == 0 {
		n = width
	}
	positions := make([]int, 0, n)
	kept := make([]string, 0, n)
	for i := 0; i < n; i++ {
		label := ""
		if i < len(labels) {
			label = labels[i]
		}
		if !f.MatchField(i+1, label) {
			continue
		}
		positions = append(positions, i+1)
		kept = append(kept, label)
	}
	if off := f.q.OffsetFields; off > 0 {
		if off > len(positions) {
			off = len(positions)
		}
		positions, kept = positions[off:], kept[off:]
	}
	if lim := f.q.LimitFields; lim > 0 && lim < len(positions) {
		positions, kept = positions[:lim], kept[:lim]
	}
	if len(labels) == 0 {
		kept = nil
	}
	return positions, kept
}

func rowHit(e entry, position int, cells []any) bool {
	first := ""
	if len(cells) > 0 && cells[0] != nil {
		first = fmt.Sprint(cells[0])
	}
	switch e.kind {
	case entryBlank:
		for _, c := range cells {
			if !isBlankCell(c) {
				return false
			}
		}
		return true
	case entryString:
		return e.str == first || (e.str != "" && strings.HasPrefix(first, e.str))
	case entryPosition:
		return e.pos == position
	case entryRegex:
		return e.re.MatchString(first)
	}
	return false
}

func isBlankCell(c any) bool {
	switch v := c.(type) {
	case nil:
		return true
	case string:
		return v == ""
	}
	return false
}
