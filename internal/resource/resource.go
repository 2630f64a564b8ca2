// Package resource implements a tabular resource: a data source that is
// opened, sampled to infer its header and schema, and then streamed row by
// row while unique, primary key and foreign key constraints are checked.
//
// A Resource is either closed or open. While open it owns exactly one parser
// and, when the parser reads bytes, one loader; Close releases both. All
// reading is pull-based and single-threaded: a Resource must not be shared
// between goroutines.
package resource

import (
	"context"
	"log"
	"slices"

	"tabular/internal/config"
	"tabular/internal/dialect"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/query"
	"tabular/internal/schema"
	"tabular/internal/stats"
	"tabular/internal/system"
)

// Resource is one tabular data source and its open session state.
type Resource struct {
	opts     Options
	loc      location.Location
	filter   *query.Filter
	registry *system.Registry

	// declared is the configured dialect; dialect is rebuilt from it on every
	// Open when the header is inferred.
	declared dialect.Dialect
	dialect  dialect.Dialect
	schema   *schema.Schema
	stats    *stats.Stats

	// Session state, rebuilt by every Open.
	open     bool
	parser   system.Parser
	loader   system.Loader
	cursor   *cursor
	header   *Header
	sample   [][]any
	samplePs []int
	labels   []string
	fieldPs  []int
	meta     *fieldMeta
	lookup   Lookup
	streamed bool
}

// New validates opts and resolves the source location. It does no I/O.
func New(opts Options) (*Resource, error) {
	switch opts.OnError {
	case "", config.OnErrorIgnore, config.OnErrorWarn, config.OnErrorRaise:
	default:
		return nil, errs.New(errs.CodeResource, "onError must be ignore, warn or raise, got %q", opts.OnError)
	}
	if err := checkDialect(opts.Dialect); err != nil {
		return nil, err
	}
	filter, err := query.Compile(opts.Query)
	if err != nil {
		return nil, err
	}
	loc, err := location.Resolve(location.Descriptor{
		Path:            opts.Path,
		Paths:           opts.Paths,
		Inline:          opts.Data != nil,
		Bytes:           opts.Bytes != nil,
		Reader:          opts.Reader != nil,
		Scheme:          opts.Scheme,
		Format:          opts.Format,
		Compression:     opts.Compression,
		CompressionPath: opts.CompressionPath,
		Basepath:        opts.Basepath,
		Trusted:         opts.Trusted,
	})
	if err != nil {
		return nil, err
	}
	if opts.Name != "" {
		loc.Name = schema.NormalizeName(opts.Name, loc.Name)
	}
	st, err := stats.New(opts.Hashing)
	if err != nil {
		return nil, errs.Wrap(errs.CodeResource, err)
	}
	if opts.Schema != nil {
		if err := opts.Schema.Validate(); err != nil {
			return nil, err
		}
	}
	reg := opts.Registry
	if reg == nil {
		reg = system.Default
	}
	d := dialect.New(opts.Dialect)
	return &Resource{
		opts:     opts,
		loc:      loc,
		filter:   filter,
		registry: reg,
		declared: d,
		dialect:  d,
		schema:   opts.Schema.Clone(),
		stats:    st,
	}, nil
}

// checkDialect rejects header settings the sampler cannot honour.
func checkDialect(c config.Dialect) error {
	for _, n := range c.HeaderRows {
		if n < 1 {
			return errs.New(errs.CodeDialect, "header rows are 1-based, got %d", n)
		}
	}
	if c.Header != nil && !*c.Header && len(c.HeaderRows) > 0 {
		return errs.New(errs.CodeDialect, "headerRows %v conflicts with header false", c.HeaderRows)
	}
	return nil
}

// Name returns the resource name.
func (r *Resource) Name() string { return r.loc.Name }

// Location returns the resolved source classification.
func (r *Resource) Location() location.Location { return r.loc }

// Closed reports whether the resource has no open session.
func (r *Resource) Closed() bool { return !r.open }

// Tabular reports whether the source decodes into rows. An open resource
// answers from its session; a closed one from the registry.
func (r *Resource) Tabular() bool {
	if r.open {
		return r.parser != nil
	}
	return slices.Contains(r.registry.Formats(), r.loc.Format)
}

// Stats returns a copy of the running statistics.
func (r *Resource) Stats() stats.Stats { return r.stats.Snapshot() }

// Schema returns the declared or inferred schema. It is nil before the
// first Open of a resource without a declared schema.
func (r *Resource) Schema() *schema.Schema { return r.schema.Clone() }

// Dialect returns the dialect in effect, including inferred header settings.
func (r *Resource) Dialect() dialect.Dialect { return r.dialect }

// Query returns the row and field filter.
func (r *Resource) Query() query.Query { return r.filter.Query() }

// Header returns the header captured by the last Open, or nil.
func (r *Resource) Header() *Header { return r.header }

// Labels returns the header labels kept by the field filter.
func (r *Resource) Labels() []string { return slices.Clone(r.labels) }

// FieldPositions returns the 1-based source positions of the schema fields.
func (r *Resource) FieldPositions() []int { return slices.Clone(r.fieldPs) }

// Sample returns the rows captured for inference, narrowed to the kept
// fields.
func (r *Resource) Sample() [][]any {
	out := make([][]any, len(r.sample))
	for i, row := range r.sample {
		out[i] = slices.Clone(row)
	}
	return out
}

// SamplePositions returns the source positions of the sample rows.
func (r *Resource) SamplePositions() []int { return slices.Clone(r.samplePs) }

// Lookup returns the foreign key lookup built by the last Open.
func (r *Resource) Lookup() Lookup { return r.lookup }

// Parser returns the active parser, or nil when closed or in file mode.
func (r *Resource) Parser() system.Parser { return r.parser }

// Loader returns the active loader, or nil.
func (r *Resource) Loader() system.Loader { return r.loader }

func (r *Resource) spec() system.Spec {
	return system.Spec{
		Location: r.loc,
		Data:     r.opts.Data,
		Reader:   r.opts.Reader,
		Bytes:    r.opts.Bytes,
		Encoding: r.opts.Encoding,
		Dialect:  r.declared,
		Control:  r.opts.Control,
		Stats:    r.stats,
	}
}

// Open starts a session: it builds and opens the parser, samples the source
// to settle the header and schema, builds the foreign key lookup and
// compiles the per-row field metadata. A source whose format has no parser
// is opened in file mode, giving byte access only. On failure the partial
// session is closed.
func (r *Resource) Open(ctx context.Context) error {
	if r.open {
		return errs.New(errs.CodeResource, "resource %q is already open", r.loc.Name)
	}
	r.stats.Reset()
	r.open = true
	if err := r.openSession(ctx); err != nil {
		_ = r.Close()
		return err
	}
	log.Printf("resource: opened name=%s scheme=%s format=%s tabular=%t", r.loc.Name, r.loc.Scheme, r.loc.Format, r.parser != nil)
	return nil
}

func (r *Resource) openSession(ctx context.Context) error {
	spec := r.spec()
	parser, err := r.registry.CreateParser(spec)
	if errs.Has(err, errs.CodeFormat) {
		loader, lerr := r.registry.CreateLoader(spec)
		if lerr != nil {
			return lerr
		}
		r.loader = loader
		return loader.Open(ctx)
	}
	if err != nil {
		return err
	}
	r.parser = parser
	if err := parser.Open(ctx); err != nil {
		return err
	}
	r.loader = parser.Loader()

	r.cursor = newCursor(parser, r.filter)
	r.dialect = r.declared
	r.streamed = false
	if err := r.detect(); err != nil {
		return err
	}
	if err := r.buildLookup(ctx); err != nil {
		return err
	}
	r.meta = newFieldMeta(r.schema, r.fieldPs, r.filter.FilteringFields())
	return nil
}

// Close ends the session, closing the parser and then the loader. It is
// safe to call more than once. Stats, schema and header stay readable.
func (r *Resource) Close() error {
	var first error
	if r.parser != nil {
		first = r.parser.Close()
	}
	// Parsers close their own loader; closing again is a no-op.
	if r.loader != nil {
		if err := r.loader.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.parser, r.loader, r.cursor = nil, nil, nil
	r.open = false
	return first
}

// ensureOpen opens a closed resource and returns the matching cleanup.
func (r *Resource) ensureOpen(ctx context.Context) (func(), error) {
	if r.open {
		return func() {}, nil
	}
	if err := r.Open(ctx); err != nil {
		return nil, err
	}
	return func() { _ = r.Close() }, nil
}
