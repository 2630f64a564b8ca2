package schema

import (
	"fmt"
	"math"
)

// DefaultConfidence is the minimal share of non-missing cells that must read
// successfully for a candidate type to be chosen.
const DefaultConfidence = 0.9

// candidates are tried in order; the first one reaching the confidence
// threshold wins.
var candidates = []string{
	TypeInteger,
	TypeNumber,
	TypeBoolean,
	TypeDate,
	TypeDatetime,
	TypeString,
}

// InferOptions tunes Infer.
type InferOptions struct {
	// TypeHint forces every field to this type.
	TypeHint string
	// NameHint overrides labels by position.
	NameHint []string
	// Confidence in (0, 1]; zero means DefaultConfidence.
	Confidence float64
	// FloatNumbers makes integer columns number columns.
	FloatNumbers bool
	// MissingValues; nil means DefaultMissingValues.
	MissingValues []string
}

// Infer builds a schema from labels and sample rows. Every sample row is
// expected to be aligned to labels (one cell per label, short rows allowed).
// Empty labels are named "field<n>".
func Infer(labels []string, sample [][]any, opts InferOptions) *Schema {
	confidence := opts.Confidence
	if confidence <= 0 || confidence > 1 {
		confidence = DefaultConfidence
	}
	missing := opts.MissingValues
	if missing == nil {
		missing = DefaultMissingValues
	}

	s := &Schema{Fields: make([]Field, len(labels))}
	if opts.MissingValues != nil {
		s.MissingValues = append([]string(nil), opts.MissingValues...)
	}
	for i, label := range labels {
		name := label
		if i < len(opts.NameHint) && opts.NameHint[i] != "" {
			name = opts.NameHint[i]
		}
		if name == "" {
			name = fmt.Sprintf("field%d", i+1)
		}
		typ := opts.TypeHint
		if typ == "" {
			typ = inferColumn(sample, i, missing, confidence)
			if opts.FloatNumbers && typ == TypeInteger {
				typ = TypeNumber
			}
		}
		s.Fields[i] = Field{Name: name, Type: typ}
	}
	return s
}

// inferColumn picks the narrowest candidate type for column i.
func inferColumn(sample [][]any, i int, missing []string, confidence float64) string {
	untyped := Field{Type: TypeAny}
	values := make([]any, 0, len(sample))
	for _, row := range sample {
		if i >= len(row) {
			continue
		}
		if v, _ := untyped.ReadCell(row[i], missing); v != nil {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return TypeAny
	}
	need := int(math.Ceil(confidence * float64(len(values))))
	for _, typ := range candidates {
		f := Field{Type: typ}
		hits := 0
		for j, v := range values {
			if _, ok := f.ReadCell(v, nil); ok {
				hits++
			}
			// Give up early once the threshold is out of reach.
			if hits+len(values)-j-1 < need {
				break
			}
		}
		if hits >= need {
			return typ
		}
	}
	return TypeAny
}
