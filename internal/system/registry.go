package system

import (
	"slices"
	"sync"

	"tabular/internal/errs"
)

// LoaderFactory builds an unopened Loader.
type LoaderFactory func(spec Spec) (Loader, error)

// ParserEntry describes how to build a Parser for one format.
type ParserEntry struct {
	// NeedsLoader makes CreateParser build a loader for the spec's scheme
	// and hand it to New.
	NeedsLoader bool
	New         func(spec Spec, loader Loader) (Parser, error)
}

// Registry maps schemes to loaders and formats to parsers. It is safe for
// concurrent use.
type Registry struct {
	mu      sync.RWMutex
	loaders map[string]LoaderFactory
	parsers map[string]ParserEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders: map[string]LoaderFactory{},
		parsers: map[string]ParserEntry{},
	}
}

// Default is filled by plugin packages at init time.
var Default = NewRegistry()

// RegisterLoader registers (or replaces) the loader for scheme.
func (r *Registry) RegisterLoader(scheme string, f LoaderFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loaders[scheme] = f
}

// RegisterParser registers (or replaces) the parser for format.
func (r *Registry) RegisterParser(format string, e ParserEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[format] = e
}

// Schemes returns a sorted snapshot of registered schemes.
func (r *Registry) Schemes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.loaders))
	for k := range r.loaders {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Formats returns a sorted snapshot of registered formats.
func (r *Registry) Formats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// CreateLoader builds the loader for spec.Location.Scheme.
func (r *Registry) CreateLoader(spec Spec) (Loader, error) {
	r.mu.RLock()
	f, ok := r.loaders[spec.Location.Scheme]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.CodeScheme, "scheme %q is not supported", spec.Location.Scheme)
	}
	return f(spec)
}

// CreateParser builds the parser for spec.Location.Format, creating its
// loader first when the format needs one. An unknown format is reported as
// errs.CodeFormat.
func (r *Registry) CreateParser(spec Spec) (Parser, error) {
	r.mu.RLock()
	e, ok := r.parsers[spec.Location.Format]
	r.mu.RUnlock()
	if !ok {
		return nil, errs.New(errs.CodeFormat, "format %q is not supported", spec.Location.Format)
	}
	var loader Loader
	if e.NeedsLoader {
		l, err := r.CreateLoader(spec)
		if err != nil {
			return nil, err
		}
		loader = l
	}
	return e.New(spec, loader)
}
