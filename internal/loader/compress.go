package loader

import (
	"archive/zip"
	"bytes"
	"compress/bzip2"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"tabular/internal/errs"
)

// Decompress wraps r according to compression ("" means none). The returned
// closer, when non-nil, must be closed after the stream is consumed.
//
// zip archives need random access, so a plain stream is buffered in memory
// and the member named by member (or the first file) is returned. Loader
// reads files in place through OpenZipAt instead.
func Decompress(r io.Reader, compression, member string) (io.Reader, io.Closer, error) {
	switch strings.ToLower(compression) {
	case "":
		return r, nil, nil

	case "gz", "gzip":
		gz, err := gzip.NewReader(r)
		if err != nil {
			return nil, nil, compressionErr("gzip", err)
		}
		return gz, gz, nil

	case "bz2", "bzip2":
		return bzip2.NewReader(r), nil, nil

	case "xz":
		xr, err := xz.NewReader(r)
		if err != nil {
			return nil, nil, compressionErr("xz", err)
		}
		return xr, nil, nil

	case "zst", "zstd":
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, compressionErr("zstd", err)
		}
		rc := dec.IOReadCloser()
		return rc, rc, nil

	case "zip":
		return openZipMember(r, member)

	default:
		return nil, nil, errs.New(errs.CodeCompression, "compression %q is not supported", compression)
	}
}

func openZipMember(r io.Reader, member string) (io.Reader, io.Closer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, compressionErr("zip", err)
	}
	return OpenZipAt(bytes.NewReader(data), int64(len(data)), member)
}

// OpenZipAt opens member (or the first file) of the size-byte archive in ra.
func OpenZipAt(ra io.ReaderAt, size int64, member string) (io.Reader, io.Closer, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, nil, compressionErr("zip", err)
	}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if member != "" && f.Name != member {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, nil, compressionErr("zip", err)
		}
		return rc, rc, nil
	}
	if member != "" {
		return nil, nil, errs.New(errs.CodeCompression, "zip member %q not found", member)
	}
	return nil, nil, errs.New(errs.CodeCompression, "zip archive is empty")
}

func compressionErr(kind string, err error) error {
	return errs.Wrap(errs.CodeCompression, fmt.Errorf("open %s stream: %w", kind, err))
}
