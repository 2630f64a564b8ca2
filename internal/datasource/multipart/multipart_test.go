package multipart

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	_ "tabular/internal/datasource/file"
	"tabular/internal/location"
	"tabular/internal/stats"
	"tabular/internal/system"
)

func TestMultipart_ConcatenatesParts(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	parts := map[string]string{"a.csv": "id\n1\n", "b.csv": "", "c.csv": "2\n3\n"}
	var paths []string
	for _, name := range []string{"a.csv", "b.csv", "c.csv"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(parts[name]), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		paths = append(paths, p)
	}

	loc, err := location.Resolve(location.Descriptor{Paths: paths, Trusted: true})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	st, _ := stats.New("")
	l, err := system.Default.CreateLoader(system.Spec{Location: loc, Stats: st})
	if err != nil {
		t.Fatalf("CreateLoader: %v", err)
	}
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()

	got, err := io.ReadAll(l.TextStream())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if want := "id\n1\n2\n3\n"; string(got) != want {
		t.Fatalf("text = %q, want %q", got, want)
	}
	if st.Bytes != int64(len("id\n1\n2\n3\n")) {
		t.Fatalf("stats.Bytes = %d", st.Bytes)
	}
}

func TestMultipart_MissingPart(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ok := filepath.Join(dir, "ok.csv")
	_ = os.WriteFile(ok, []byte("x\n"), 0o644)
	loc, _ := location.Resolve(location.Descriptor{Paths: []string{ok, filepath.Join(dir, "gone.csv")}, Trusted: true})

	l, _ := system.Default.CreateLoader(system.Spec{Location: loc})
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	if _, err := io.ReadAll(l.ByteStream()); err == nil {
		t.Fatalf("read error = nil, want missing part error")
	}
}
