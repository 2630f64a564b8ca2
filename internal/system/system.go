// Package system defines the contracts between a resource and the pluggable
// code that reads its bytes (Loader) and decodes its rows (Parser), plus the
// registry that picks an implementation by scheme and format.
//
// Implementations register themselves from init(); importing
// tabular/internal/datasource/all and tabular/internal/parser/all makes every
// built-in scheme and format available through Default.
package system

import (
	"context"
	"io"

	"tabular/internal/config"
	"tabular/internal/dialect"
	"tabular/internal/location"
	"tabular/internal/stats"
)

// Loader provides byte-level access to a source.
type Loader interface {
	Open(ctx context.Context) error
	// ByteStream returns the decompressed bytes. Valid after Open.
	ByteStream() io.Reader
	// TextStream returns ByteStream decoded to UTF-8. Valid after Open.
	TextStream() io.Reader
	Remote() bool
	Close() error
}

// Parser decodes a source into raw cell arrays.
type Parser interface {
	Open(ctx context.Context) error
	// Read returns the next row and io.EOF after the last one.
	Read() ([]any, error)
	NeedsLoader() bool
	// Loader returns the attached loader, or nil.
	Loader() Loader
	Close() error
}

// Spec is everything a factory may need to build a loader or parser.
type Spec struct {
	Location location.Location

	// Data holds inline rows for the inline format.
	Data [][]any
	// Reader is the caller-supplied stream for the filelike scheme.
	Reader io.Reader
	// Bytes is the in-memory payload for the buffer scheme.
	Bytes []byte

	Encoding string
	Dialect  dialect.Dialect
	Control  config.Options
	Stats    *stats.Stats
}
