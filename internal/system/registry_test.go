package system

import (
	"context"
	"errors"
	"io"
	"reflect"
	"testing"

	"tabular/internal/errs"
	"tabular/internal/location"
)

type fakeLoader struct{ closed bool }

func (f *fakeLoader) Open(ctx context.Context) error { return nil }
func (f *fakeLoader) ByteStream() io.Reader         { return nil }
func (f *fakeLoader) TextStream() io.Reader         { return nil }
func (f *fakeLoader) Remote() bool                  { return false }
func (f *fakeLoader) Close() error                  { f.closed = true; return nil }

type fakeParser struct{ loader Loader }

func (f *fakeParser) Open(ctx context.Context) error { return nil }
func (f *fakeParser) Read() ([]any, error)           { return nil, io.EOF }
func (f *fakeParser) NeedsLoader() bool              { return f.loader != nil }
func (f *fakeParser) Loader() Loader                 { return f.loader }
func (f *fakeParser) Close() error                   { return nil }

func specFor(scheme, format string) Spec {
	return Spec{Location: location.Location{Scheme: scheme, Format: format}}
}

func TestCreateParser_WithLoader(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterLoader("file", func(Spec) (Loader, error) { return &fakeLoader{}, nil })
	r.RegisterParser("csv", ParserEntry{
		NeedsLoader: true,
		New: func(spec Spec, l Loader) (Parser, error) {
			return &fakeParser{loader: l}, nil
		},
	})

	p, err := r.CreateParser(specFor("file", "csv"))
	if err != nil {
		t.Fatalf("CreateParser: %v", err)
	}
	if !p.NeedsLoader() || p.Loader() == nil {
		t.Fatalf("parser loader = %v, want attached loader", p.Loader())
	}
}

func TestCreateParser_Errors(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.RegisterParser("csv", ParserEntry{
		NeedsLoader: true,
		New:         func(Spec, Loader) (Parser, error) { return &fakeParser{}, nil },
	})

	_, err := r.CreateParser(specFor("file", "xyz"))
	if !errs.Has(err, errs.CodeFormat) {
		t.Fatalf("unknown format error = %v, want format-error", err)
	}
	var e *errs.Error
	if !errors.As(err, &e) || e.Kind() != errs.KindFormat {
		t.Fatalf("unknown format kind = %v, want format", err)
	}

	_, err = r.CreateParser(specFor("gopher", "csv"))
	if !errs.Has(err, errs.CodeScheme) {
		t.Fatalf("unknown scheme error = %v, want scheme-error", err)
	}
}

func TestRegistry_OverrideAndSnapshot(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	calls := 0
	r.RegisterLoader("mem", func(Spec) (Loader, error) { calls++; return &fakeLoader{}, nil })
	r.RegisterLoader("mem", func(Spec) (Loader, error) { calls += 10; return &fakeLoader{}, nil })
	r.RegisterLoader("file", func(Spec) (Loader, error) { return &fakeLoader{}, nil })

	if _, err := r.CreateLoader(specFor("mem", "")); err != nil {
		t.Fatalf("CreateLoader: %v", err)
	}
	if calls != 10 {
		t.Fatalf("factory call count = %d, want 10", calls)
	}
	if got, want := r.Schemes(), []string{"file", "mem"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Schemes = %v, want %v", got, want)
	}
	if got := r.Formats(); len(got) != 0 {
		t.Fatalf("Formats = %v, want empty", got)
	}
}
