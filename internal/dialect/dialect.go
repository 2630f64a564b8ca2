// Package dialect holds the header-detection configuration of a resource.
//
// A Dialect is an immutable value. Changing it means building a new one with
// the With* helpers; the owning resource swaps it explicitly.
package dialect

import (
	"slices"

	"tabular/internal/config"
)

// DefaultHeaderRows is used when header rows are not set.
var DefaultHeaderRows = []int{1}

// DefaultHeaderJoin joins labels from multiple header rows.
const DefaultHeaderJoin = " "

// Dialect is the format-independent part of the decoding configuration plus
// opaque format-specific options read by parsers (delimiter, sheet, table...).
type Dialect struct {
	header     *bool
	headerRows []int
	headerJoin string
	headerCase *bool
	options    config.Options
}

// New builds a Dialect from its JSON configuration.
func New(c config.Dialect) Dialect {
	d := Dialect{
		header:     c.Header,
		headerRows: slices.Clone(c.HeaderRows),
		headerJoin: c.HeaderJoin,
		headerCase: c.HeaderCase,
		options:    c.Options,
	}
	if d.options == nil {
		d.options = config.Options{}
	}
	return d
}

// HeaderSet reports whether header presence or header rows were configured.
// Header inference only runs when this is false.
func (d Dialect) HeaderSet() bool {
	return d.header != nil || len(d.headerRows) > 0
}

// Header reports whether the source has a header. Defaults to true.
func (d Dialect) Header() bool {
	if d.header == nil {
		return true
	}
	return *d.header
}

// HeaderRows returns the 1-based row positions forming the header.
func (d Dialect) HeaderRows() []int {
	if len(d.headerRows) == 0 {
		return slices.Clone(DefaultHeaderRows)
	}
	return slices.Clone(d.headerRows)
}

// HeaderJoin returns the separator for multi-row labels.
func (d Dialect) HeaderJoin() string {
	if d.headerJoin == "" {
		return DefaultHeaderJoin
	}
	return d.headerJoin
}

// HeaderCase reports whether label comparison is case sensitive. Defaults to true.
func (d Dialect) HeaderCase() bool {
	if d.headerCase == nil {
		return true
	}
	return *d.headerCase
}

// Options returns the format-specific options. The map must not be mutated.
func (d Dialect) Options() config.Options { return d.options }

// WithHeader returns a copy with header presence set.
func (d Dialect) WithHeader(v bool) Dialect {
	d.header = &v
	return d
}

// WithHeaderRows returns a copy with header rows set.
func (d Dialect) WithHeaderRows(rows []int) Dialect {
	d.headerRows = slices.Clone(rows)
	return d
}

// Config converts d back into its JSON form, e.g. for a descriptor.
func (d Dialect) Config() config.Dialect {
	return config.Dialect{
		Header:     d.header,
		HeaderRows: slices.Clone(d.headerRows),
		HeaderJoin: d.headerJoin,
		HeaderCase: d.headerCase,
		Options:    d.options,
	}
}
