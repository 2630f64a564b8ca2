package loader

import (
	"io"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"tabular/internal/errs"
)

// DefaultEncoding is assumed when none is configured.
const DefaultEncoding = "utf-8"

// Decode returns r decoded from the named encoding to UTF-8. A leading byte
// order mark overrides the declared encoding and is removed.
func Decode(r io.Reader, name string) (io.Reader, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	return transform.NewReader(r, unicode.BOMOverride(enc.NewDecoder())), nil
}

func lookupEncoding(name string) (encoding.Encoding, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || name == DefaultEncoding || name == "utf8" {
		return unicode.UTF8, nil
	}
	enc, err := htmlindex.Get(name)
	if err != nil {
		return nil, errs.New(errs.CodeEncoding, "encoding %q is not supported", name)
	}
	return enc, nil
}
