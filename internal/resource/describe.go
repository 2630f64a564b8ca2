package resource

import (
	"context"

	"tabular/internal/config"
	"tabular/internal/schema"
	"tabular/internal/stats"
)

// Descriptor is the serializable metadata of an inferred resource.
type Descriptor struct {
	Name        string         `json:"name"`
	Path        string         `json:"path,omitempty"`
	Paths       []string       `json:"paths,omitempty"`
	Scheme      string         `json:"scheme,omitempty"`
	Format      string         `json:"format,omitempty"`
	Encoding    string         `json:"encoding,omitempty"`
	Compression string         `json:"compression,omitempty"`
	Hashing     string         `json:"hashing,omitempty"`
	Tabular     bool           `json:"tabular"`
	Dialect     config.Dialect `json:"dialect"`
	Schema      *schema.Schema `json:"schema,omitempty"`
	Stats       stats.Stats    `json:"stats"`
}

// Describe builds a resource from opts, infers it and returns its
// descriptor. With onlySample the stats cover the sampled prefix only.
func Describe(ctx context.Context, opts Options, onlySample bool) (Descriptor, error) {
	r, err := New(opts)
	if err != nil {
		return Descriptor{}, err
	}
	if err := r.Infer(ctx, onlySample); err != nil {
		return Descriptor{}, err
	}
	return r.Descriptor(), nil
}

// Descriptor returns the current metadata without any I/O.
func (r *Resource) Descriptor() Descriptor {
	return Descriptor{
		Name:        r.loc.Name,
		Path:        r.loc.Path,
		Paths:       r.loc.Paths,
		Scheme:      r.loc.Scheme,
		Format:      r.loc.Format,
		Encoding:    r.opts.Encoding,
		Compression: r.loc.Compression,
		Hashing:     r.stats.Hashing(),
		Tabular:     r.Tabular(),
		Dialect:     r.dialect.Config(),
		Schema:      r.Schema(),
		Stats:       r.Stats(),
	}
}
