package resource

import (
	"context"
	"io"

	"tabular/internal/errs"
	"tabular/internal/system"
)

// Infer settles the schema, header and dialect. Unless onlySample is set it
// also streams every row so that the stats cover the whole source. A closed
// resource is closed again afterwards.
func (r *Resource) Infer(ctx context.Context, onlySample bool) error {
	cleanup, err := r.ensureOpen(ctx)
	if err != nil {
		return err
	}
	defer cleanup()
	if onlySample || r.parser == nil {
		return nil
	}
	for _, err := range r.Rows(ctx) {
		if err != nil {
			return err
		}
	}
	return nil
}

// ReadRows returns every emitted row.
func (r *Resource) ReadRows(ctx context.Context) ([]*Row, error) {
	var out []*Row
	for row, err := range r.Rows(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
	return out, nil
}

// ReadData returns the header labels, when there are any, followed by the
// source cells of every emitted row.
func (r *Resource) ReadData(ctx context.Context) ([][]any, error) {
	cleanup, err := r.ensureOpen(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()
	if r.parser == nil {
		return nil, errNotTabular
	}
	var out [][]any
	if !r.header.Missing() {
		labels := make([]any, len(r.labels))
		for i, l := range r.labels {
			labels[i] = l
		}
		out = append(out, labels)
	}
	for row, err := range r.Rows(ctx) {
		if err != nil {
			return out, err
		}
		out = append(out, row.Raw())
	}
	return out, nil
}

// ReadBytes returns the decompressed source bytes. It works on a closed
// resource and on one open in file mode.
func (r *Resource) ReadBytes(ctx context.Context) ([]byte, error) {
	return r.readStream(ctx, system.Loader.ByteStream)
}

// ReadText returns the source decoded to UTF-8.
func (r *Resource) ReadText(ctx context.Context) (string, error) {
	b, err := r.readStream(ctx, system.Loader.TextStream)
	return string(b), err
}

func (r *Resource) readStream(ctx context.Context, pick func(system.Loader) io.Reader) ([]byte, error) {
	if r.open {
		if r.parser != nil {
			return nil, errs.New(errs.CodeResource, "resource %q is open for rows; close it to read bytes", r.loc.Name)
		}
		return readAll(pick(r.loader))
	}
	r.stats.Reset()
	loader, err := r.registry.CreateLoader(r.spec())
	if err != nil {
		return nil, err
	}
	defer loader.Close()
	if err := loader.Open(ctx); err != nil {
		return nil, err
	}
	return readAll(pick(loader))
}

func readAll(src io.Reader) ([]byte, error) {
	b, err := io.ReadAll(src)
	if err != nil {
		return nil, errs.Wrap(errs.CodeSource, err)
	}
	return b, nil
}
