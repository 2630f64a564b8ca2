package resource

import (
	"io"
	"log"

	"tabular/internal/config"
	"tabular/internal/query"
	"tabular/internal/schema"
	"tabular/internal/system"
)

// Defaults for Detect values left at zero.
const (
	DefaultBufferSize = 100
	DefaultSampleSize = 100
)

// Options configures a Resource. Exactly one of Path, Paths, Data, Bytes or
// Reader names the source.
type Options struct {
	Name string

	Path  string
	Paths []string
	// Data holds inline rows.
	Data [][]any
	// Bytes is an in-memory payload.
	Bytes []byte
	// Reader is consumed once; a resource over a Reader cannot be reopened
	// and cannot resolve self-referencing foreign keys.
	Reader io.Reader

	Scheme          string
	Format          string
	Compression     string
	CompressionPath string
	Encoding        string
	Hashing         string
	Basepath        string
	Trusted         bool

	Dialect config.Dialect
	Control config.Options
	Query   query.Query

	Schema      *schema.Schema
	SchemaPatch map[string]any
	SyncSchema  bool
	Detect      config.Detect

	// OnError is one of config.OnErrorIgnore (default), OnErrorWarn or
	// OnErrorRaise.
	OnError string
	// OnWarning receives notices under the warn policy.
	OnWarning func(error)

	// Package resolves named foreign key targets. When nil, foreign keys to
	// other resources are not checked.
	Package Package
	// NoLookup disables foreign key lookup building.
	NoLookup bool

	// Registry defaults to system.Default.
	Registry *system.Registry
}

// FromTask converts a decoded inquiry task.
func FromTask(t config.Task) Options {
	return Options{
		Name:            t.Name,
		Path:            t.Path,
		Paths:           t.Paths,
		Data:            t.Data,
		Scheme:          t.Scheme,
		Format:          t.Format,
		Compression:     t.Compression,
		CompressionPath: t.CompressionPath,
		Encoding:        t.Encoding,
		Hashing:         t.Hashing,
		Basepath:        t.Basepath,
		Trusted:         t.Trusted,
		Dialect:         t.Dialect,
		Control:         t.Control,
		Query:           t.Query,
		Schema:          t.Schema,
		SchemaPatch:     t.SchemaPatch,
		SyncSchema:      t.SyncSchema,
		Detect:          t.Detect,
		OnError:         t.OnError,
	}
}

func (o Options) bufferSize() int {
	if o.Detect.BufferSize > 0 {
		return o.Detect.BufferSize
	}
	return DefaultBufferSize
}

func (o Options) sampleSize() int {
	if o.Detect.SampleSize > 0 {
		return o.Detect.SampleSize
	}
	return DefaultSampleSize
}

func (o Options) warn(err error) {
	if o.OnWarning != nil {
		o.OnWarning(err)
		return
	}
	log.Printf("resource: warning: %v", err)
}
