// Package multipart implements the "multipart" loader scheme: several
// sources read back to back as one byte stream. Parts are opened lazily, one
// at a time, through the loader registered for each part's own scheme.
package multipart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"tabular/internal/loader"
	"tabular/internal/location"
	"tabular/internal/system"
)

func init() {
	system.Default.RegisterLoader(location.SchemeMultipart, func(spec system.Spec) (system.Loader, error) {
		return loader.New(spec, NewSource(spec, system.Default), spec.Location.Remote), nil
	})
}

// Source concatenates the parts of a multipart location.
type Source struct {
	parts    []system.Spec
	registry *system.Registry
}

// NewSource prepares one sub-spec per part. Compression and decoding apply
// to the joined stream, so parts are read raw.
func NewSource(spec system.Spec, registry *system.Registry) *Source {
	s := &Source{registry: registry}
	for _, p := range spec.Location.Fullpaths {
		part := system.Spec{Control: spec.Control}
		// Paths were checked when the multipart location was resolved.
		loc, err := location.Resolve(location.Descriptor{Path: p, Trusted: true})
		if err != nil {
			loc = location.Location{Scheme: location.SchemeFile, Fullpath: p}
		}
		loc.Compression = ""
		part.Location = loc
		s.parts = append(s.parts, part)
	}
	return s
}

// Open returns a reader that walks the parts in order.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	if len(s.parts) == 0 {
		return nil, fmt.Errorf("multipart: no parts")
	}
	return &reader{ctx: ctx, src: s}, nil
}

type reader struct {
	ctx     context.Context
	src     *Source
	next    int
	current system.Loader
}

func (r *reader) Read(p []byte) (int, error) {
	for {
		if r.current == nil {
			if r.next >= len(r.src.parts) {
				return 0, io.EOF
			}
			l, err := r.src.registry.CreateLoader(r.src.parts[r.next])
			if err != nil {
				return 0, err
			}
			if err := l.Open(r.ctx); err != nil {
				return 0, fmt.Errorf("multipart: part %d: %w", r.next+1, err)
			}
			r.current = l
			r.next++
		}
		n, err := r.current.ByteStream().Read(p)
		if errors.Is(err, io.EOF) {
			cerr := r.current.Close()
			r.current = nil
			if cerr != nil {
				return n, cerr
			}
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (r *reader) Close() error {
	if r.current == nil {
		return nil
	}
	err := r.current.Close()
	r.current = nil
	return err
}
