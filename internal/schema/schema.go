// Package schema models the ordered field definitions of a tabular resource
// together with its primary and foreign key declarations.
//
// Schemas come from three places: a JSON descriptor, inference over a sample
// (Infer), or reconciliation of sampled labels against a declared schema
// (Sync). Patch applies partial overrides on top of any of them.
package schema

import (
	"fmt"
	"slices"

	jsoniter "github.com/json-iterator/go"

	"tabular/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Field types understood by inference and cell reading.
const (
	TypeAny      = "any"
	TypeString   = "string"
	TypeInteger  = "integer"
	TypeNumber   = "number"
	TypeBoolean  = "boolean"
	TypeDate     = "date"
	TypeDatetime = "datetime"
)

// DefaultMissingValues are the cell tokens treated as null.
var DefaultMissingValues = []string{""}

// Constraints restricts the values of a field.
type Constraints struct {
	Required bool `json:"required,omitempty"`
	Unique   bool `json:"unique,omitempty"`
}

// Field is a single column definition.
type Field struct {
	Name        string      `json:"name"`
	Type        string      `json:"type,omitempty"`
	Format      string      `json:"format,omitempty"`
	Title       string      `json:"title,omitempty"`
	Description string      `json:"description,omitempty"`
	Constraints Constraints `json:"constraints,omitempty"`
}

// Reference is the target side of a foreign key. An empty Resource means the
// key points back at the same resource.
type Reference struct {
	Resource string   `json:"resource"`
	Fields   []string `json:"fields"`
}

// ForeignKey declares that the local Fields must exist in the referenced
// resource's Reference.Fields.
type ForeignKey struct {
	Fields    []string  `json:"fields"`
	Reference Reference `json:"reference"`
}

// Schema is an ordered list of fields plus key declarations.
type Schema struct {
	Fields        []Field      `json:"fields"`
	PrimaryKey    []string     `json:"primaryKey,omitempty"`
	ForeignKeys   []ForeignKey `json:"foreignKeys,omitempty"`
	MissingValues []string     `json:"missingValues,omitempty"`
}

// Clone returns a deep copy of s.
func (s *Schema) Clone() *Schema {
	if s == nil {
		return nil
	}
	out := &Schema{
		Fields:        slices.Clone(s.Fields),
		PrimaryKey:    slices.Clone(s.PrimaryKey),
		MissingValues: slices.Clone(s.MissingValues),
	}
	for _, fk := range s.ForeignKeys {
		out.ForeignKeys = append(out.ForeignKeys, ForeignKey{
			Fields: slices.Clone(fk.Fields),
			Reference: Reference{
				Resource: fk.Reference.Resource,
				Fields:   slices.Clone(fk.Reference.Fields),
			},
		})
	}
	return out
}

// Empty reports whether s declares no fields.
func (s *Schema) Empty() bool { return s == nil || len(s.Fields) == 0 }

// FieldNames returns the field names in order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the named field.
func (s *Schema) Field(name string) (Field, bool) {
	if s == nil {
		return Field{}, false
	}
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Missing returns the missing-value tokens, defaulting to DefaultMissingValues.
func (s *Schema) Missing() []string {
	if s == nil || s.MissingValues == nil {
		return DefaultMissingValues
	}
	return s.MissingValues
}

// Validate reports duplicate field names and keys referring to unknown fields
// as schema errors.
func (s *Schema) Validate() error {
	seen := make(map[string]struct{}, len(s.Fields))
	for i, f := range s.Fields {
		if _, dup := seen[f.Name]; dup {
			e := errs.New(errs.CodeSchema, "duplicate field name %q", f.Name)
			e.FieldName, e.FieldNumber = f.Name, i+1
			return e
		}
		seen[f.Name] = struct{}{}
	}
	for _, name := range s.PrimaryKey {
		if _, ok := seen[name]; !ok {
			return errs.New(errs.CodeSchema, "primary key field %q is not in the schema", name)
		}
	}
	for i, fk := range s.ForeignKeys {
		if len(fk.Fields) == 0 || len(fk.Fields) != len(fk.Reference.Fields) {
			return errs.New(errs.CodeSchema, "foreign key %d: local and reference fields must be non-empty and of equal length", i)
		}
		for _, name := range fk.Fields {
			if _, ok := seen[name]; !ok {
				return errs.New(errs.CodeSchema, "foreign key %d: field %q is not in the schema", i, name)
			}
		}
	}
	return nil
}

// Sync rebuilds the field list to follow labels: fields already declared
// under a label are kept, unknown labels become untyped fields. Keys and
// missing values are preserved.
func (s *Schema) Sync(labels []string) *Schema {
	out := s.Clone()
	if out == nil {
		out = &Schema{}
	}
	fields := make([]Field, 0, len(labels))
	for _, label := range labels {
		if f, ok := s.Field(label); ok {
			fields = append(fields, f)
			continue
		}
		fields = append(fields, Field{Name: label, Type: TypeAny})
	}
	out.Fields = fields
	return out
}

// Patch deep-merges patch onto s. Top-level keys replace or merge into the
// schema; patch["fields"] is a map from field name to a partial field which is
// merged onto that field.
func (s *Schema) Patch(patch map[string]any) (*Schema, error) {
	if s == nil {
		s = &Schema{}
	}
	if len(patch) == 0 {
		return s.Clone(), nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("schema: patch: encode: %w", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("schema: patch: decode: %w", err)
	}

	var fieldPatches map[string]any
	for k, v := range patch {
		if k == "fields" {
			if m, ok := v.(map[string]any); ok {
				fieldPatches = m
				continue
			}
		}
		doc[k] = merge(doc[k], v)
	}
	if len(fieldPatches) > 0 {
		fields, _ := doc["fields"].([]any)
		for i, f := range fields {
			fm, ok := f.(map[string]any)
			if !ok {
				continue
			}
			name, _ := fm["name"].(string)
			if p, ok := fieldPatches[name]; ok {
				fields[i] = merge(fm, p)
			}
		}
		doc["fields"] = fields
	}

	raw, err = json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("schema: patch: encode: %w", err)
	}
	var out Schema
	if err := json.Unmarshal(raw, &out); err != nil {
		e := errs.Wrap(errs.CodeSchema, err)
		return nil, fmt.Errorf("schema: patch: %w", e)
	}
	return &out, nil
}

// merge overlays src onto dst. Objects merge key by key; anything else in src
// replaces dst.
func merge(dst, src any) any {
	dm, ok1 := dst.(map[string]any)
	sm, ok2 := src.(map[string]any)
	if !ok1 || !ok2 {
		return src
	}
	out := make(map[string]any, len(dm)+len(sm))
	for k, v := range dm {
		out[k] = v
	}
	for k, v := range sm {
		out[k] = merge(out[k], v)
	}
	return out
}
