package resource

import (
	"tabular/internal/errs"
)

// Package resolves foreign key targets by resource name.
type Package interface {
	// Resource returns a fresh, unopened resource.
	Resource(name string) (*Resource, error)
}

// Catalog is a Package backed by resource options keyed by name.
type Catalog map[string]Options

// Resource builds the named resource. Catalog members share the catalog as
// their own package.
func (c Catalog) Resource(name string) (*Resource, error) {
	opts, ok := c[name]
	if !ok {
		return nil, errs.New(errs.CodeResource, "foreign key target %q does not exist", name)
	}
	if opts.Name == "" {
		opts.Name = name
	}
	if opts.Package == nil {
		opts.Package = c
	}
	return New(opts)
}
