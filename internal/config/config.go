// Package config defines the canonical, JSON-serializable configuration model
// for tabular validation runs. Inquiry files are decoded straight into these
// structs; the resource layer builds its runtime values (dialect, query
// filter, schema) from them.
//
// Example (trimmed):
//
//	{
//	  "job": "nightly",
//	  "workers": 4,
//	  "tasks": [
//	    {
//	      "path": "data/orders.csv.gz",
//	      "dialect": { "headerRows": [1], "options": { "delimiter": ";" } },
//	      "query":   { "skipRows": ["#"], "limitRows": 1000 },
//	      "schema":  { "fields": [{ "name": "id", "type": "integer" }], "primaryKey": ["id"] },
//	      "onError": "warn",
//	      "resources": [ { "name": "customers", "path": "data/customers.csv" } ]
//	    }
//	  ]
//	}
package config

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"tabular/internal/query"
	"tabular/internal/schema"
)

// Error policies for row and header errors.
const (
	OnErrorIgnore = "ignore"
	OnErrorWarn   = "warn"
	OnErrorRaise  = "raise"
)

// Inquiry is a batch of independent validation tasks. It is the top-level
// object decoded from an inquiry file.
type Inquiry struct {
	// Job labels metrics and reports.
	Job string `json:"job"`

	// Workers bounds how many tasks run at once. Zero means one per CPU.
	Workers int `json:"workers"`

	Tasks []Task `json:"tasks"`
}

// Task describes one resource to validate, plus the other resources its
// foreign keys may refer to.
type Task struct {
	Name string `json:"name"`

	// Path is a local path or URL. Paths, when it has more than one entry,
	// makes the resource multipart.
	Path  string   `json:"path"`
	Paths []string `json:"paths,omitempty"`

	// Data holds inline rows; it takes precedence over Path.
	Data [][]any `json:"data,omitempty"`

	// Overrides for location detection.
	Scheme          string `json:"scheme,omitempty"`
	Format          string `json:"format,omitempty"`
	Compression     string `json:"compression,omitempty"`
	CompressionPath string `json:"compressionPath,omitempty"`

	Encoding string `json:"encoding,omitempty"`
	Hashing  string `json:"hashing,omitempty"`
	Basepath string `json:"basepath,omitempty"`

	// Trusted disables unsafe path checks.
	Trusted bool `json:"trusted,omitempty"`

	Dialect Dialect `json:"dialect"`

	// Control carries scheme-specific options (HTTP timeouts, S3 region...).
	Control Options `json:"control"`

	Query       query.Query    `json:"query"`
	Schema      *schema.Schema `json:"schema,omitempty"`
	SchemaPatch map[string]any `json:"schemaPatch,omitempty"`
	SyncSchema  bool           `json:"syncSchema,omitempty"`
	Detect      Detect         `json:"detect"`

	// OnError is one of ignore (default), warn, raise.
	OnError string `json:"onError,omitempty"`

	// Resources are the named foreign key targets.
	Resources []Task `json:"resources,omitempty"`
}

// Dialect is the JSON form of the header-detection configuration.
type Dialect struct {
	Header     *bool   `json:"header,omitempty"`
	HeaderRows []int   `json:"headerRows,omitempty"`
	HeaderJoin string  `json:"headerJoin,omitempty"`
	HeaderCase *bool   `json:"headerCase,omitempty"`
	Options    Options `json:"options,omitempty"`
}

// Detect tunes sampling and inference. Zero values select defaults.
type Detect struct {
	// BufferSize is the number of rows buffered for header detection.
	BufferSize int `json:"bufferSize,omitempty"`
	// SampleSize is the number of rows used for schema inference.
	SampleSize int `json:"sampleSize,omitempty"`

	FieldType          string   `json:"fieldType,omitempty"`
	FieldNames         []string `json:"fieldNames,omitempty"`
	FieldConfidence    float64  `json:"fieldConfidence,omitempty"`
	FieldFloatNumbers  bool     `json:"fieldFloatNumbers,omitempty"`
	FieldMissingValues []string `json:"fieldMissingValues,omitempty"`
}

// Options fetches typed values from arbitrary JSON maps. Coercion is minimal:
// a key that is absent or of an unexpected type yields the default.
//
// Options carries dialect and control settings whose shape varies by parser
// or loader (CSV delimiter, spreadsheet sheet, SQL table, HTTP timeout...).
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
// If the value is neither float64 nor int, def is returned.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// Duration returns a duration for key. Strings are parsed with
// time.ParseDuration ("30s"); numbers are taken as seconds.
func (o Options) Duration(key string, def time.Duration) time.Duration {
	if v, ok := o[key]; ok {
		switch d := v.(type) {
		case string:
			if parsed, err := time.ParseDuration(d); err == nil {
				return parsed
			}
		case float64:
			return time.Duration(d * float64(time.Second))
		case int:
			return time.Duration(d) * time.Second
		case time.Duration:
			return d
		}
	}
	return def
}

// Rune returns the first rune of a string value for key, or def if key is
// missing or empty. This is useful for single-character parser settings such as
// a CSV delimiter.
func (o Options) Rune(key string, def rune) rune {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok && len(s) > 0 {
			return []rune(s)[0]
		}
	}
	return def
}

// StringMap returns a map[string]string for key when the value is an object
// whose values are strings. Non-string values are ignored. Returns an empty map
// when the key is missing or the value is not an object.
func (o Options) StringMap(key string) map[string]string {
	res := map[string]string{}
	if v, ok := o[key]; ok {
		if m, ok := v.(map[string]any); ok {
			for k, vv := range m {
				if s, ok := vv.(string); ok {
					res[k] = s
				}
			}
		}
	}
	return res
}

// StringSlice returns a []string for key when the value is an array of strings
// (or an array of interface values containing strings). Returns nil when the
// key is missing or the value is not an array.
func (o Options) StringSlice(key string) []string {
	if v, ok := o[key]; ok {
		switch vv := v.(type) {
		case []any:
			out := make([]string, 0, len(vv))
			for _, x := range vv {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
			return out
		case []string:
			return vv
		}
	}
	return nil
}

// Any returns the raw value for key (which may itself be a nested
// map[string]any, []any, or primitive). This is useful for retrieving nested
// configuration blocks that will be unmarshaled into a typed struct by the
// caller (e.g., an inline validation contract).
func (o Options) Any(key string) any {
	if v, ok := o[key]; ok {
		return v
	}
	return nil
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// UnmarshalJSON implements json.Unmarshaler so that a missing or null "options"
// object in JSON decodes to a non-nil, empty Options map. This simplifies call
// sites by removing the need to nil-check Options values.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
