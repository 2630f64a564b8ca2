package xmlparser

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	_ "tabular/internal/datasource/memory"

	"tabular/internal/config"
	"tabular/internal/dialect"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

func readAll(t *testing.T, body string, opts config.Options) ([][]any, error) {
	t.Helper()
	spec := system.Spec{
		Location: location.Location{Scheme: location.SchemeBuffer, Format: "xml"},
		Bytes:    []byte(body),
		Dialect:  dialect.New(config.Dialect{Options: opts}),
	}
	p, err := system.Default.CreateParser(spec)
	if err != nil {
		t.Fatalf("CreateParser: %v", err)
	}
	defer p.Close()
	if err := p.Open(context.Background()); err != nil {
		return nil, err
	}
	var out [][]any
	for {
		row, err := p.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, row)
	}
}

func TestParser_ChildColumns(t *testing.T) {
	t.Parallel()

	const doc = `<?xml version="1.0"?>
<people>
  <person><id>1</id><name>  Ada
    Lovelace </name></person>
  <person><name>Alan</name><id>2</id><extra>x</extra></person>
</people>`

	got, err := readAll(t, doc, nil)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]any{{"id", "name"}, {"1", "Ada Lovelace"}, {"2", "Alan"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
}

func TestParser_Paths(t *testing.T) {
	t.Parallel()

	const doc = `<set>
  <Article>
    <Citation><PMID>11</PMID></Citation>
    <IdList><Id IdType="doi">10.1/a</Id><Id IdType="pmc">PMC1</Id></IdList>
    <Authors><Author>A</Author><Author>B</Author></Authors>
  </Article>
  <Article><Citation><PMID>12</PMID></Citation></Article>
</set>`

	opts := config.Options{
		OptRecordTag: "Article",
		OptFields:    map[string]any{"pmid": "Citation/PMID", "doi": "IdList/Id[@IdType='doi']"},
		OptLists:     map[string]any{"authors": "Authors/Author"},
	}
	got, err := readAll(t, doc, opts)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := [][]any{
		{"doi", "pmid", "authors"},
		{"10.1/a", "11", []any{"A", "B"}},
		{nil, "12", nil},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %#v, want %#v", got, want)
	}
}

func TestParser_Errors(t *testing.T) {
	t.Parallel()

	if _, err := readAll(t, `<r><row><a>1</a>`, nil); !errs.Has(err, errs.CodeSource) {
		t.Fatalf("truncated error = %v, want source-error", err)
	}
	if _, err := readAll(t, `<r/>`, config.Options{OptFields: map[string]any{"a": " "}}); !errs.Has(err, errs.CodeDialect) {
		t.Fatalf("bad path error = %v, want dialect-error", err)
	}
}

func TestParsePathSpec_Predicate(t *testing.T) {
	t.Parallel()

	ps, err := parsePathSpec(`A/B[@id="x"]`)
	if err != nil {
		t.Fatalf("parsePathSpec: %v", err)
	}
	if got := ps.segs[len(ps.segs)-1]; got.name != "B" || got.attrName != "id" || got.attrVal != "x" {
		t.Fatalf("last segment = %+v", got)
	}
	if _, err := parsePathSpec("A//B"); err == nil {
		t.Fatalf("parsePathSpec(A//B) error = nil, want error")
	}
}
