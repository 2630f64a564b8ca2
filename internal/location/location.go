// Package location classifies a resource source into scheme, format and
// compression metadata. Resolution is pure: it never touches the filesystem
// or the network.
package location

import (
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"tabular/internal/errs"
	"tabular/internal/schema"
)

// Schemes handled without a path.
const (
	SchemeFile      = "file"
	SchemeBuffer    = "buffer"
	SchemeFilelike  = "filelike"
	SchemeMultipart = "multipart"
)

// FormatInline is the format of in-memory row data.
const FormatInline = "inline"

// FormatSQL is the format of database sources.
const FormatSQL = "sql"

// RemoteSchemes are fetched over the network.
var RemoteSchemes = map[string]bool{
	"http":  true,
	"https": true,
	"ftp":   true,
	"ftps":  true,
	"s3":    true,
}

// databaseSchemes map URL schemes to the SQL parser.
var databaseSchemes = map[string]bool{
	"postgres":   true,
	"postgresql": true,
	"mysql":      true,
	"sqlite":     true,
	"sqlserver":  true,
	"mssql":      true,
}

// compressionExts are recognized trailing extensions.
var compressionExts = map[string]bool{
	"gz":  true,
	"bz2": true,
	"xz":  true,
	"zst": true,
	"zip": true,
}

// Descriptor is what the caller knows about a source before resolution.
type Descriptor struct {
	Path  string
	Paths []string

	// Inline marks in-memory row data.
	Inline bool
	// Bytes marks an in-memory byte buffer.
	Bytes bool
	// Reader marks an io.Reader supplied by the caller.
	Reader bool

	Scheme          string
	Format          string
	Compression     string
	CompressionPath string

	Basepath string
	Trusted  bool
}

// Location is the resolved classification of a source.
type Location struct {
	Name            string   `json:"name"`
	Path            string   `json:"path,omitempty"`
	Paths           []string `json:"paths,omitempty"`
	Fullpath        string   `json:"-"`
	Fullpaths       []string `json:"-"`
	Scheme          string   `json:"scheme"`
	Format          string   `json:"format"`
	Compression     string   `json:"compression,omitempty"`
	CompressionPath string   `json:"compressionPath,omitempty"`
	Basepath        string   `json:"basepath,omitempty"`
	Inline          bool     `json:"-"`
	Multipart       bool     `json:"-"`
	Remote          bool     `json:"-"`
}

// Resolve classifies d. Unsafe local paths are rejected unless d.Trusted.
func Resolve(d Descriptor) (Location, error) {
	loc := Location{
		Basepath:        d.Basepath,
		Compression:     strings.ToLower(d.Compression),
		CompressionPath: d.CompressionPath,
	}

	switch {
	case d.Inline:
		loc.Name = "memory"
		loc.Scheme = ""
		loc.Format = FormatInline
		loc.Inline = true
		return override(loc, d), nil

	case d.Bytes || d.Reader:
		loc.Name = "memory"
		loc.Scheme = SchemeBuffer
		if d.Reader {
			loc.Scheme = SchemeFilelike
		}
		return override(loc, d), nil

	case len(d.Paths) > 1:
		loc.Multipart = true
		loc.Scheme = SchemeMultipart
		loc.Paths = append([]string(nil), d.Paths...)
		for _, p := range d.Paths {
			part, err := classify(p, d)
			if err != nil {
				return Location{}, err
			}
			loc.Fullpaths = append(loc.Fullpaths, part.Fullpath)
			if part.Remote {
				loc.Remote = true
			}
			if loc.Format == "" {
				loc.Format = part.Format
				loc.Name = part.Name
				if loc.Compression == "" {
					loc.Compression = part.Compression
				}
			}
		}
		return override(loc, d), nil
	}

	p := d.Path
	if p == "" && len(d.Paths) == 1 {
		p = d.Paths[0]
	}
	if p == "" {
		return Location{}, errs.New(errs.CodeResource, "source has no path, data or reader")
	}
	part, err := classify(p, d)
	if err != nil {
		return Location{}, err
	}
	part.Basepath = loc.Basepath
	part.CompressionPath = loc.CompressionPath
	if loc.Compression != "" {
		part.Compression = loc.Compression
	}
	return override(part, d), nil
}

// classify resolves a single path.
func classify(p string, d Descriptor) (Location, error) {
	loc := Location{Path: p}

	scheme, rest, hasScheme := strings.Cut(p, "://")
	// Windows drive letters look like one-letter schemes.
	if hasScheme && len(scheme) > 1 {
		loc.Scheme = strings.ToLower(scheme)
	} else {
		loc.Scheme = SchemeFile
		rest = p
	}

	name := rest
	switch {
	case databaseSchemes[loc.Scheme]:
		loc.Format = FormatSQL
		loc.Fullpath = p
		loc.Name = schema.NormalizeName(path.Base(stripQuery(rest)), "memory")
		return loc, nil
	case RemoteSchemes[loc.Scheme]:
		loc.Remote = true
		loc.Fullpath = p
		if u, err := url.Parse(p); err == nil {
			name = u.Path
			if name == "" {
				name = u.Host
			}
		}
	default:
		if loc.Scheme == SchemeFile && hasScheme {
			// file://relative/path
			loc.Path = rest
		}
		if !d.Trusted && !IsSafePath(loc.Path) {
			return Location{}, errs.New(errs.CodeUnsafePath, "path %q is not safe", loc.Path)
		}
		loc.Fullpath = loc.Path
		if d.Basepath != "" {
			loc.Fullpath = filepath.Join(d.Basepath, loc.Path)
		}
		name = loc.Path
	}

	name = stripQuery(name)
	ext := extOf(name)
	if compressionExts[ext] {
		loc.Compression = ext
		name = strings.TrimSuffix(name, "."+ext)
		ext = extOf(name)
	}
	loc.Format = ext
	base := path.Base(filepath.ToSlash(name))
	base = base[:len(base)-len(path.Ext(base))]
	loc.Name = schema.NormalizeName(base, "memory")
	return loc, nil
}

// override applies explicit scheme/format from the descriptor.
func override(loc Location, d Descriptor) Location {
	if d.Scheme != "" {
		loc.Scheme = strings.ToLower(d.Scheme)
		loc.Remote = RemoteSchemes[loc.Scheme]
	}
	if d.Format != "" {
		loc.Format = strings.ToLower(d.Format)
	}
	return loc
}

func stripQuery(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		return p[:i]
	}
	return p
}

func extOf(p string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filepath.ToSlash(p)), "."))
}

var (
	windowsVar = regexp.MustCompile(`^%.+%`)
	posixVar   = regexp.MustCompile(`^\$.+`)
)

// IsSafePath reports whether a local path stays inside the working tree:
// it must be relative, free of parent traversal, home expansion and
// environment variables.
func IsSafePath(p string) bool {
	switch {
	case filepath.IsAbs(p), strings.HasPrefix(p, "/"):
		return false
	case strings.Contains(p, ".."+string(filepath.Separator)), strings.Contains(p, "../"):
		return false
	case strings.HasPrefix(p, "~"):
		return false
	case os.ExpandEnv(p) != p:
		return false
	case windowsVar.MatchString(p), posixVar.MatchString(p):
		return false
	}
	return true
}
