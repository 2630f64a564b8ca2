// Package errs defines the typed error records produced while opening,
// sampling and streaming a tabular resource.
//
// Every error carries a Code. The code determines its Kind, and the kind
// decides how the engine treats it: configuration errors are always fatal,
// format errors may fall back to file mode, row and header errors follow the
// resource's onerror policy, resource errors propagate.
package errs

import (
	"errors"
	"fmt"
	"strings"
)

// Code identifies a specific error type, e.g. "unique-error".
type Code string

// Kind groups codes by how the engine handles them.
type Kind int

const (
	KindGeneral Kind = iota
	KindConfig
	KindFormat
	KindHeader
	KindRow
	KindResource
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindFormat:
		return "format"
	case KindHeader:
		return "header"
	case KindRow:
		return "row"
	case KindResource:
		return "resource"
	default:
		return "general"
	}
}

const (
	CodeGeneral Code = "error"

	// Configuration.
	CodeUnsafePath Code = "unsafe-path"
	CodeSchema     Code = "schema-error"
	CodeQuery      Code = "query-error"
	CodeDialect    Code = "dialect-error"

	// Format selection.
	CodeFormat Code = "format-error"
	CodeScheme Code = "scheme-error"

	// Header validity.
	CodeBlankHeader    Code = "blank-header"
	CodeDuplicateLabel Code = "duplicate-label"
	CodeIncorrectLabel Code = "incorrect-label"
	CodeExtraLabel     Code = "extra-label"
	CodeMissingLabel   Code = "missing-label"

	// Row integrity.
	CodeExtraCell   Code = "extra-cell"
	CodeMissingCell Code = "missing-cell"
	CodeType        Code = "type-error"
	CodeConstraint  Code = "constraint-error"
	CodeBlankRow    Code = "blank-row"
	CodeUnique      Code = "unique-error"
	CodePrimaryKey  Code = "primary-key-error"
	CodeForeignKey  Code = "foreign-key-error"

	// Resource / I/O.
	CodeResource    Code = "resource-error"
	CodeSource      Code = "source-error"
	CodeEncoding    Code = "encoding-error"
	CodeCompression Code = "compression-error"
)

var kinds = map[Code]Kind{
	CodeUnsafePath: KindConfig,
	CodeSchema:     KindConfig,
	CodeQuery:      KindConfig,
	CodeDialect:    KindConfig,

	CodeFormat: KindFormat,
	CodeScheme: KindFormat,

	CodeBlankHeader:    KindHeader,
	CodeDuplicateLabel: KindHeader,
	CodeIncorrectLabel: KindHeader,
	CodeExtraLabel:     KindHeader,
	CodeMissingLabel:   KindHeader,

	CodeExtraCell:   KindRow,
	CodeMissingCell: KindRow,
	CodeType:        KindRow,
	CodeConstraint:  KindRow,
	CodeBlankRow:    KindRow,
	CodeUnique:      KindRow,
	CodePrimaryKey:  KindRow,
	CodeForeignKey:  KindRow,

	CodeResource:    KindResource,
	CodeSource:      KindResource,
	CodeEncoding:    KindResource,
	CodeCompression: KindResource,
}

// Kind returns the handling class of c.
func (c Code) Kind() Kind {
	if k, ok := kinds[c]; ok {
		return k
	}
	return KindGeneral
}

var titles = map[Code]string{
	CodeUnsafePath:     "Unsafe Path",
	CodeSchema:         "Schema Error",
	CodeQuery:          "Query Error",
	CodeDialect:        "Dialect Error",
	CodeFormat:         "Format Error",
	CodeScheme:         "Scheme Error",
	CodeBlankHeader:    "Blank Header",
	CodeDuplicateLabel: "Duplicate Label",
	CodeIncorrectLabel: "Incorrect Label",
	CodeExtraLabel:     "Extra Label",
	CodeMissingLabel:   "Missing Label",
	CodeExtraCell:      "Extra Cell",
	CodeMissingCell:    "Missing Cell",
	CodeType:           "Type Error",
	CodeConstraint:     "Constraint Error",
	CodeBlankRow:       "Blank Row",
	CodeUnique:         "Unique Error",
	CodePrimaryKey:     "PrimaryKey Error",
	CodeForeignKey:     "ForeignKey Error",
	CodeResource:       "Resource Error",
	CodeSource:         "Source Error",
	CodeEncoding:       "Encoding Error",
	CodeCompression:    "Compression Error",
}

// Title returns a human readable name for c.
func (c Code) Title() string {
	if t, ok := titles[c]; ok {
		return t
	}
	return "Error"
}

// Error is a tagged error record. Row and field context is optional; zero
// values mean "not applicable".
type Error struct {
	Code        Code     `json:"code"`
	Note        string   `json:"note"`
	RowPosition int      `json:"rowPosition,omitempty"`
	RowNumber   int      `json:"rowNumber,omitempty"`
	FieldName   string   `json:"fieldName,omitempty"`
	FieldNumber int      `json:"fieldNumber,omitempty"`
	Label       string   `json:"label,omitempty"`
	Cells       []string `json:"cells,omitempty"`
	Err         error    `json:"-"`
}

// New returns an *Error with the given code and formatted note.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Note: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error with the given code whose note is err's message.
// The cause stays reachable through errors.Unwrap.
func Wrap(code Code, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Note: err.Error(), Err: err}
}

// Kind is shorthand for e.Code.Kind().
func (e *Error) Kind() Kind { return e.Code.Kind() }

// Error renders a message with whatever context is attached.
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.RowPosition > 0 && e.FieldName != "":
		fmt.Fprintf(&b, "%s: row at position %d, field %q", e.Code.Title(), e.RowPosition, e.FieldName)
	case e.RowPosition > 0:
		fmt.Fprintf(&b, "%s: row at position %d", e.Code.Title(), e.RowPosition)
	case e.FieldNumber > 0:
		fmt.Fprintf(&b, "%s: label %q at field %d", e.Code.Title(), e.Label, e.FieldNumber)
	default:
		b.WriteString(e.Code.Title())
	}
	if e.Note != "" {
		b.WriteString(": ")
		b.WriteString(e.Note)
	}
	return b.String()
}

// Unwrap exposes the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, &errs.Error{Code: errs.CodeUnique}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Has reports whether err's chain contains an *Error with the given code.
func Has(err error, code Code) bool {
	e, ok := As(err)
	return ok && e.Code == code
}

// IsKind reports whether err's chain contains an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	e, ok := As(err)
	return ok && e.Kind() == kind
}
