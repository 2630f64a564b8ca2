package resource

import (
	"slices"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/schema"
)

// Header is the label row captured at open time, checked against the schema.
type Header struct {
	Labels         []string `json:"labels"`
	FieldNames     []string `json:"fieldNames"`
	FieldPositions []int    `json:"fieldPositions"`
	// RowPositions are the source positions of the header rows; empty when
	// the table has no header.
	RowPositions []int         `json:"rowPositions,omitempty"`
	Errors       []*errs.Error `json:"errors,omitempty"`
}

// Valid reports whether the header has no errors.
func (h *Header) Valid() bool { return h == nil || len(h.Errors) == 0 }

// Missing reports whether the table has no header rows.
func (h *Header) Missing() bool { return h == nil || len(h.RowPositions) == 0 }

func newHeader(labels []string, positions, rowPs []int, sch *schema.Schema, caseSensitive, present bool) *Header {
	h := &Header{
		Labels:         slices.Clone(labels),
		FieldNames:     sch.FieldNames(),
		FieldPositions: slices.Clone(positions),
		RowPositions:   slices.Clone(rowPs),
	}
	if !present || len(rowPs) == 0 {
		return h
	}

	blank := true
	for _, l := range labels {
		if l != "" {
			blank = false
			break
		}
	}
	if blank {
		e := errs.New(errs.CodeBlankHeader, "header is empty")
		h.Errors = append(h.Errors, e)
		return h
	}

	seen := make(map[string]int, len(labels))
	for i, label := range labels {
		num := i + 1
		pos := num
		if i < len(positions) {
			pos = positions[i]
		}
		if i >= len(h.FieldNames) {
			h.Errors = append(h.Errors, labelError(errs.CodeExtraLabel, label, "", pos, "there is no field for this label"))
			continue
		}
		name := h.FieldNames[i]
		if label == "" {
			continue
		}
		if first, dup := seen[label]; dup {
			h.Errors = append(h.Errors, labelError(errs.CodeDuplicateLabel, label, name, pos, "label is the same as at field %d", first))
			continue
		}
		seen[label] = num
		match := label == name
		if !caseSensitive {
			match = strings.EqualFold(label, name)
		}
		if !match {
			h.Errors = append(h.Errors, labelError(errs.CodeIncorrectLabel, label, name, pos, "label %q does not match field name %q", label, name))
		}
	}
	for i := len(labels); i < len(h.FieldNames); i++ {
		pos := i + 1
		if i < len(positions) {
			pos = positions[i]
		}
		h.Errors = append(h.Errors, labelError(errs.CodeMissingLabel, "", h.FieldNames[i], pos, "there is no label for this field"))
	}
	return h
}

func labelError(code errs.Code, label, field string, number int, format string, args ...any) *errs.Error {
	e := errs.New(code, format, args...)
	e.Label = label
	e.FieldName = field
	e.FieldNumber = number
	return e
}
