package httpds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"tabular/internal/config"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/system"
)

func TestSource_Open(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing.csv" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer t" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, "id,name\n1,a\n")
	}))
	defer srv.Close()

	control := config.Options{
		ControlHeaders: map[string]any{"Authorization": "Bearer t"},
		ControlRetries: float64(0),
	}
	for _, preload := range []bool{false, true} {
		control[ControlPreload] = preload
		rc, err := NewSource(srv.URL+"/table.csv", control).Open(context.Background())
		if err != nil {
			t.Fatalf("preload=%v: Open: %v", preload, err)
		}
		body, _ := io.ReadAll(rc)
		rc.Close()
		if string(body) != "id,name\n1,a\n" {
			t.Fatalf("preload=%v: body = %q", preload, body)
		}
	}

	_, err := NewSource(srv.URL+"/missing.csv", control).Open(context.Background())
	if !errs.Has(err, errs.CodeSource) {
		t.Fatalf("missing Open error = %v, want source-error", err)
	}
}

func TestRegisteredLoader(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "a\n1\n")
	}))
	defer srv.Close()

	loc, err := location.Resolve(location.Descriptor{Path: srv.URL + "/t.csv"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	l, err := system.Default.CreateLoader(system.Spec{Location: loc})
	if err != nil {
		t.Fatalf("CreateLoader: %v", err)
	}
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if !l.Remote() {
		t.Fatalf("Remote = false, want true")
	}
	got, _ := io.ReadAll(l.ByteStream())
	if string(got) != "a\n1\n" {
		t.Fatalf("bytes = %q", got)
	}
}
