// Package datasource holds the byte sources behind each loader scheme. Each
// subpackage registers its scheme with system.Default from init().
package datasource

import (
	"context"
	"io"
)

// Source opens the raw bytes of one location.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (io.ReadCloser, error)

// Open calls f.
func (f SourceFunc) Open(ctx context.Context) (io.ReadCloser, error) { return f(ctx) }
