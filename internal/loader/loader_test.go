package loader

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"tabular/internal/datasource"
	"tabular/internal/errs"
	"tabular/internal/location"
	"tabular/internal/stats"
	"tabular/internal/system"
)

const payload = "id,name\n1,José\n"

func memSource(b []byte) datasource.Source {
	return datasource.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b)), nil
	})
}

func compressed(t *testing.T, kind string) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch kind {
	case "gz":
		w := gzip.NewWriter(&buf)
		_, _ = w.Write([]byte(payload))
		_ = w.Close()
	case "zst":
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd.NewWriter: %v", err)
		}
		_, _ = w.Write([]byte(payload))
		_ = w.Close()
	case "xz":
		w, err := xz.NewWriter(&buf)
		if err != nil {
			t.Fatalf("xz.NewWriter: %v", err)
		}
		_, _ = w.Write([]byte(payload))
		_ = w.Close()
	case "zip":
		zw := zip.NewWriter(&buf)
		_, _ = zw.Create("dir/")
		f, _ := zw.Create("dir/table.csv")
		_, _ = f.Write([]byte(payload))
		_ = zw.Close()
	default:
		buf.WriteString(payload)
	}
	return buf.Bytes()
}

func TestLoader_Decompression(t *testing.T) {
	t.Parallel()

	for _, kind := range []string{"", "gz", "zst", "xz", "zip"} {
		raw := compressed(t, kind)
		st, _ := stats.New("")
		spec := system.Spec{
			Location: location.Location{Scheme: "buffer", Compression: kind},
			Stats:    st,
		}
		l := New(spec, memSource(raw), false)
		if err := l.Open(context.Background()); err != nil {
			t.Fatalf("%q: Open: %v", kind, err)
		}
		got, err := io.ReadAll(l.TextStream())
		if err != nil {
			t.Fatalf("%q: read: %v", kind, err)
		}
		if string(got) != payload {
			t.Fatalf("%q: text = %q, want %q", kind, got, payload)
		}
		if kind != "zip" && st.Bytes != int64(len(raw)) {
			t.Fatalf("%q: stats.Bytes = %d, want raw size %d", kind, st.Bytes, len(raw))
		}
		if err := l.Close(); err != nil {
			t.Fatalf("%q: Close: %v", kind, err)
		}
		if err := l.Close(); err != nil {
			t.Fatalf("%q: second Close: %v", kind, err)
		}
	}
}

func TestLoader_ZipMember(t *testing.T) {
	t.Parallel()

	spec := system.Spec{Location: location.Location{Compression: "zip", CompressionPath: "missing.csv"}}
	l := New(spec, memSource(compressed(t, "zip")), false)
	if err := l.Open(context.Background()); !errs.Has(err, errs.CodeCompression) {
		t.Fatalf("Open error = %v, want compression-error", err)
	}
}

// seekOnly fails sequential reads so that a zip opened through it must be
// read in place.
type seekOnly struct{ *os.File }

func (seekOnly) Read([]byte) (int, error) { return 0, errors.New("sequential read") }

func TestLoader_ZipFileInPlace(t *testing.T) {
	t.Parallel()

	raw := compressed(t, "zip")
	path := filepath.Join(t.TempDir(), "table.csv.zip")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	open := func(wrap bool) datasource.Source {
		return datasource.SourceFunc(func(ctx context.Context) (io.ReadCloser, error) {
			f, err := os.Open(path)
			if err != nil {
				return nil, err
			}
			if wrap {
				return seekOnly{f}, nil
			}
			return f, nil
		})
	}

	// Without stats nothing reads the file sequentially.
	spec := system.Spec{Location: location.Location{Scheme: "file", Compression: "zip"}}
	l := New(spec, open(true), false)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := io.ReadAll(l.TextStream())
	if err != nil || string(got) != payload {
		t.Fatalf("text = %q, %v, want %q", got, err, payload)
	}
	_ = l.Close()

	st, _ := stats.New("")
	spec.Stats = st
	l = New(spec, open(false), false)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open with stats: %v", err)
	}
	defer l.Close()
	if _, err := io.ReadAll(l.TextStream()); err != nil {
		t.Fatalf("read: %v", err)
	}
	sum := md5.Sum(raw)
	if snap := st.Snapshot(); snap.Bytes != int64(len(raw)) || snap.Hash != hex.EncodeToString(sum[:]) {
		t.Fatalf("stats = %d %q, want %d %x", snap.Bytes, snap.Hash, len(raw), sum)
	}
}

func TestLoader_Encoding(t *testing.T) {
	t.Parallel()

	latin1 := []byte("name\nJos\xe9\n")
	spec := system.Spec{Encoding: "latin1"}
	l := New(spec, memSource(latin1), false)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	got, _ := io.ReadAll(l.TextStream())
	if string(got) != "name\nJosé\n" {
		t.Fatalf("text = %q, want decoded latin1", got)
	}

	bad := New(system.Spec{Encoding: "klingon"}, memSource(latin1), false)
	if err := bad.Open(context.Background()); !errs.Has(err, errs.CodeEncoding) {
		t.Fatalf("Open error = %v, want encoding-error", err)
	}
}

func TestLoader_BOM(t *testing.T) {
	t.Parallel()

	l := New(system.Spec{}, memSource([]byte("\xef\xbb\xbfid\n1\n")), false)
	if err := l.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer l.Close()
	got, _ := io.ReadAll(l.TextStream())
	if string(got) != "id\n1\n" {
		t.Fatalf("text = %q, want BOM stripped", got)
	}
}

func TestLoader_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := datasource.SourceFunc(func(context.Context) (io.ReadCloser, error) { return nil, boom })
	l := New(system.Spec{}, src, true)
	err := l.Open(context.Background())
	if !errs.Has(err, errs.CodeSource) || !errors.Is(err, boom) {
		t.Fatalf("Open error = %v, want source-error wrapping boom", err)
	}
	if !l.Remote() {
		t.Fatalf("Remote = false, want true")
	}
}

func TestDecompress_Unsupported(t *testing.T) {
	t.Parallel()

	if _, _, err := Decompress(strings.NewReader(""), "rar", ""); !errs.Has(err, errs.CodeCompression) {
		t.Fatalf("Decompress(rar) error = %v, want compression-error", err)
	}
}
