// Package memory implements the in-memory loader schemes: "buffer" reads a
// byte slice and "filelike" reads a caller-supplied io.Reader.
package memory

import (
	"bytes"
	"context"
	"io"

	"tabular/internal/datasource"
	"tabular/internal/errs"
	"tabular/internal/loader"
	"tabular/internal/location"
	"tabular/internal/system"
)

func init() {
	system.Default.RegisterLoader(location.SchemeBuffer, func(spec system.Spec) (system.Loader, error) {
		return loader.New(spec, Bytes(spec.Bytes), false), nil
	})
	system.Default.RegisterLoader(location.SchemeFilelike, func(spec system.Spec) (system.Loader, error) {
		if spec.Reader == nil {
			return nil, errs.New(errs.CodeSource, "filelike source has no reader")
		}
		return loader.New(spec, Reader(spec.Reader), false), nil
	})
}

// Bytes serves b afresh on every Open.
func Bytes(b []byte) datasource.Source {
	return datasource.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}

// Reader serves r. The caller keeps ownership, so Close does not close r,
// and a second Open continues wherever the first one stopped.
func Reader(r io.Reader) datasource.Source {
	return datasource.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return io.NopCloser(r), nil
	})
}
