package xmlparser

import (
	"fmt"
	"sort"
	"strings"

	"tabular/internal/config"
)

// Config describes how to extract values from each record element. Paths
// are relative to the record and support a predicate on the last segment,
// e.g. "ArticleIdList/ArticleId[@IdType='doi']".
type Config struct {
	RecordTag string
	Fields    map[string]string // single-valued
	Lists     map[string]string // multi-valued
}

// configFrom reads the recordTag, fields and lists dialect options.
func configFrom(opt config.Options) Config {
	return Config{
		RecordTag: strings.TrimSpace(opt.String(OptRecordTag, "")),
		Fields:    opt.StringMap(OptFields),
		Lists:     opt.StringMap(OptLists),
	}
}

// seg is one path segment with an optional predicate.
type seg struct{ name, attrName, attrVal string }

type pathSpec struct{ segs []seg }

func parsePathSpec(raw string) (pathSpec, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return pathSpec{}, fmt.Errorf("empty path")
	}
	parts := strings.Split(raw, "/")
	segs := make([]seg, 0, len(parts))
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return pathSpec{}, fmt.Errorf("bad empty segment in %q", raw)
		}
		s := seg{name: p}
		// Name[@Attr='Value'] is allowed on the last segment only.
		if i == len(parts)-1 {
			if j := strings.Index(p, "["); j != -1 && strings.HasSuffix(p, "]") {
				s.name = p[:j]
				pred := strings.TrimSpace(p[j+1 : len(p)-1])
				if rest, ok := strings.CutPrefix(pred, "@"); ok {
					if name, val, ok := strings.Cut(rest, "="); ok && name != "" {
						s.attrName = strings.TrimSpace(name)
						s.attrVal = strings.Trim(strings.TrimSpace(val), `"'`)
					}
				}
			}
		}
		segs = append(segs, s)
	}
	return pathSpec{segs: segs}, nil
}

type namedMatcher struct {
	outKey string
	spec   pathSpec
	isList bool
}

// Compiled indexes matchers by the element name they end on.
type Compiled struct {
	recordTag string
	keys      []string
	byLast    map[string][]namedMatcher
}

// Keys returns the output keys in header order: fields then lists, each
// sorted by name.
func (c Compiled) Keys() []string { return c.keys }

// Empty reports whether no paths were configured.
func (c Compiled) Empty() bool { return len(c.byLast) == 0 }

// Compile validates c and builds its matcher index.
func Compile(c Config) (Compiled, error) {
	cc := Compiled{recordTag: c.RecordTag, byLast: map[string][]namedMatcher{}}
	add := func(group string, m map[string]string, isList bool) error {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			ps, err := parsePathSpec(m[k])
			if err != nil {
				return fmt.Errorf("%s.%s: %w", group, k, err)
			}
			last := ps.segs[len(ps.segs)-1].name
			cc.byLast[last] = append(cc.byLast[last], namedMatcher{outKey: k, spec: ps, isList: isList})
			cc.keys = append(cc.keys, k)
		}
		return nil
	}
	if err := add(OptFields, c.Fields, false); err != nil {
		return cc, err
	}
	if err := add(OptLists, c.Lists, true); err != nil {
		return cc, err
	}
	return cc, nil
}

// tailMatches reports whether rel, the element names below the record,
// ends with spec's segments.
func tailMatches(rel []string, spec pathSpec) bool {
	if len(rel) < len(spec.segs) {
		return false
	}
	off := len(rel) - len(spec.segs)
	for i := range spec.segs {
		if rel[off+i] != spec.segs[i].name {
			return false
		}
	}
	return true
}
