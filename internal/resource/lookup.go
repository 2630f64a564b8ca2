package resource

import (
	"context"
	"log"
	"strings"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/location"
)

// Lookup maps a target resource name ("" for the resource itself) and a
// target field tuple to the set of key tuples present in the target.
type Lookup map[string]map[string]map[string]struct{}

// Has reports whether the target holds vals under fields.
func (l Lookup) Has(resource string, fields []string, vals []any) bool {
	set, ok := l.set(resource, fields)
	if !ok {
		return false
	}
	_, hit := set[tupleKey(vals)]
	return hit
}

// Len returns the number of tuples collected for a target.
func (l Lookup) Len(resource string, fields []string) int {
	set, _ := l.set(resource, fields)
	return len(set)
}

func (l Lookup) set(resource string, fields []string) (map[string]struct{}, bool) {
	byFields, ok := l[resource]
	if !ok {
		return nil, false
	}
	set, ok := byFields[strings.Join(fields, "\x1f")]
	return set, ok
}

// buildLookup reads every foreign key target once and collects its
// distinct non-null key tuples.
func (r *Resource) buildLookup(ctx context.Context) error {
	r.lookup = Lookup{}
	if r.opts.NoLookup || len(r.schema.ForeignKeys) == 0 {
		return nil
	}

	var order []string
	targets := map[string][][]string{}
	for _, fk := range r.schema.ForeignKeys {
		name := fk.Reference.Resource
		if _, ok := targets[name]; !ok {
			order = append(order, name)
		}
		targets[name] = append(targets[name], fk.Reference.Fields)
	}

	for _, name := range order {
		target, err := r.lookupTarget(name)
		if err != nil {
			return err
		}
		if target == nil {
			continue
		}
		if err := r.collect(ctx, name, target, targets[name]); err != nil {
			return err
		}
	}
	return nil
}

// lookupTarget returns an unopened resource in no-lookup mode, or nil when
// the target cannot be checked.
func (r *Resource) lookupTarget(name string) (*Resource, error) {
	if name == "" {
		if r.loc.Scheme == location.SchemeFilelike {
			log.Printf("resource: skipping self-referencing foreign keys name=%s reason=stream-cannot-be-reread", r.loc.Name)
			return nil, nil
		}
		opts := r.opts
		opts.NoLookup = true
		opts.OnError = config.OnErrorIgnore
		opts.OnWarning = nil
		opts.Schema = r.schema.Clone()
		opts.SchemaPatch = nil
		opts.SyncSchema = false
		opts.Dialect = r.dialect.Config()
		return New(opts)
	}
	if r.opts.Package == nil {
		log.Printf("resource: skipping foreign keys name=%s target=%s reason=no-package", r.loc.Name, name)
		return nil, nil
	}
	target, err := r.opts.Package.Resource(name)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, errs.New(errs.CodeResource, "foreign key target %q does not exist", name)
	}
	target.opts.NoLookup = true
	target.opts.OnError = config.OnErrorIgnore
	return target, nil
}

func (r *Resource) collect(ctx context.Context, name string, target *Resource, tuples [][]string) error {
	byFields := r.lookup[name]
	if byFields == nil {
		byFields = map[string]map[string]struct{}{}
		r.lookup[name] = byFields
	}
	for _, fields := range tuples {
		byFields[strings.Join(fields, "\x1f")] = map[string]struct{}{}
	}

	for row, err := range target.Rows(ctx) {
		if err != nil {
			return err
		}
		for _, fields := range tuples {
			vals := make([]any, len(fields))
			null := true
			for i, f := range fields {
				vals[i] = row.Get(f)
				if vals[i] != nil {
					null = false
				}
			}
			if null {
				continue
			}
			byFields[strings.Join(fields, "\x1f")][tupleKey(vals)] = struct{}{}
		}
	}
	log.Printf("resource: lookup built name=%s target=%s keys=%d", r.loc.Name, name, len(tuples))
	return nil
}
