// Package loader turns a raw byte source into the byte and text streams a
// parser consumes. It handles what every scheme has in common: counting and
// hashing the raw bytes, decompression and character decoding. Scheme
// packages only supply a datasource.Source.
package loader

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"tabular/internal/datasource"
	"tabular/internal/errs"
	"tabular/internal/system"
)

// Loader implements system.Loader over a Source.
type Loader struct {
	spec   system.Spec
	src    datasource.Source
	remote bool

	closers []io.Closer
	bytes   io.Reader
	text    io.Reader
}

var _ system.Loader = (*Loader)(nil)

// New returns an unopened loader reading src.
func New(spec system.Spec, src datasource.Source, remote bool) *Loader {
	return &Loader{spec: spec, src: src, remote: remote}
}

// Open opens the source and stacks counting, decompression and decoding on
// top of it. A failed Open leaves nothing to close.
func (l *Loader) Open(ctx context.Context) error {
	if l.bytes != nil {
		return errs.New(errs.CodeResource, "loader is already open")
	}
	raw, err := l.src.Open(ctx)
	if err != nil {
		return wrapSource(err)
	}
	l.closers = append(l.closers, raw)

	loc := l.spec.Location
	var (
		dr     io.Reader
		closer io.Closer
	)
	if f, ok := raw.(sizedReaderAt); ok && strings.EqualFold(loc.Compression, "zip") {
		dr, closer, err = l.openZipInPlace(f, loc.CompressionPath)
	} else {
		var r io.Reader = raw
		if l.spec.Stats != nil {
			r = l.spec.Stats.Reader(r)
		}
		dr, closer, err = Decompress(r, loc.Compression, loc.CompressionPath)
	}
	if err != nil {
		l.Close()
		return err
	}
	if closer != nil {
		l.closers = append(l.closers, closer)
	}
	l.bytes = dr

	if _, err := lookupEncoding(l.spec.Encoding); err != nil {
		l.Close()
		return err
	}
	log.Printf("loader: opened scheme=%s compression=%q remote=%t", loc.Scheme, loc.Compression, l.remote)
	return nil
}

// sizedReaderAt is a source with random access and a known size, such as
// *os.File.
type sizedReaderAt interface {
	io.ReaderAt
	Stat() (os.FileInfo, error)
}

// openZipInPlace reads the archive through ReadAt. Stats still see every raw
// byte once, in a sequential pass ahead of decoding.
func (l *Loader) openZipInPlace(f sizedReaderAt, member string) (io.Reader, io.Closer, error) {
	info, err := f.Stat()
	if err != nil {
		return nil, nil, compressionErr("zip", err)
	}
	size := info.Size()
	if l.spec.Stats != nil {
		if _, err := io.Copy(io.Discard, l.spec.Stats.Reader(io.NewSectionReader(f, 0, size))); err != nil {
			return nil, nil, wrapSource(err)
		}
	}
	return OpenZipAt(f, size, member)
}

// ByteStream returns decompressed bytes.
func (l *Loader) ByteStream() io.Reader { return l.bytes }

// TextStream returns the byte stream decoded to UTF-8 with any BOM removed.
// Only one of ByteStream and TextStream should be consumed.
func (l *Loader) TextStream() io.Reader {
	if l.text == nil && l.bytes != nil {
		// The encoding was checked in Open.
		l.text, _ = Decode(l.bytes, l.spec.Encoding)
	}
	return l.text
}

// Remote reports whether the bytes come over the network.
func (l *Loader) Remote() bool { return l.remote }

// Close releases every stacked reader in reverse order. It is idempotent.
func (l *Loader) Close() error {
	var first error
	for i := len(l.closers) - 1; i >= 0; i-- {
		if err := l.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	l.closers = nil
	l.bytes = nil
	l.text = nil
	if first != nil {
		return fmt.Errorf("loader: close: %w", first)
	}
	return nil
}

func wrapSource(err error) error {
	if _, ok := errs.As(err); ok {
		return err
	}
	return errs.Wrap(errs.CodeSource, err)
}
