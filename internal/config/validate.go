// Package config provides configuration models and helpers for validation
// runs.
//
// This file adds a lightweight linter for Inquiry values. It performs static
// checks over a decoded Inquiry and returns a list of issues (errors and
// warnings) that callers can surface in a CLI or tests.
package config

import (
	"fmt"
	"strings"

	"tabular/internal/query"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError indicates a configuration error that should block execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning indicates a configuration warning that should be surfaced
	// to users but may not necessarily block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation/lint finding for an Inquiry.
//
// Path is a dotted path into the config (e.g. "tasks[0].query.limitRows").
// Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateInquiry performs static validation / linting of an Inquiry.
//
// It does not mutate the inquiry. Callers may decide whether to treat
// warnings as fatal or not.
func ValidateInquiry(inq Inquiry) []Issue {
	var issues []Issue

	if strings.TrimSpace(inq.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "job",
			Message:  "job is empty; metrics and reports will be labeled \"default\"",
		})
	}
	if inq.Workers < 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "workers",
			Message:  fmt.Sprintf("workers must be >= 0, got %d", inq.Workers),
		})
	}
	if len(inq.Tasks) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "tasks",
			Message:  "at least one task is required",
		})
	}
	for i, t := range inq.Tasks {
		issues = append(issues, ValidateTask(fmt.Sprintf("tasks[%d]", i), t)...)
	}
	return issues
}

// ValidateTask lints a single task rooted at path.
func ValidateTask(path string, t Task) []Issue {
	var issues []Issue

	hasSource := strings.TrimSpace(t.Path) != "" || len(t.Paths) > 0 || t.Data != nil
	if !hasSource {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".path",
			Message:  "one of path, paths or data is required",
		})
	}
	if t.Path != "" && len(t.Paths) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     path + ".paths",
			Message:  "both path and paths are set; paths wins",
		})
	}

	switch t.OnError {
	case "", OnErrorIgnore, OnErrorWarn, OnErrorRaise:
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".onError",
			Message:  fmt.Sprintf("unknown policy %q; want ignore, warn or raise", t.OnError),
		})
	}

	switch strings.ToLower(t.Hashing) {
	case "", "md5", "sha1", "sha256", "sha512", "xxh3":
	default:
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".hashing",
			Message:  fmt.Sprintf("unsupported hashing algorithm %q", t.Hashing),
		})
	}

	for i, row := range t.Dialect.HeaderRows {
		if row < 1 {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s.dialect.headerRows[%d]", path, i),
				Message:  "header rows are 1-based",
			})
		}
	}
	if t.Dialect.Header != nil && !*t.Dialect.Header && len(t.Dialect.HeaderRows) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".dialect.headerRows",
			Message:  "headerRows conflicts with header false",
		})
	}

	if _, err := query.Compile(t.Query); err != nil {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".query",
			Message:  err.Error(),
		})
	}

	if t.Detect.FieldConfidence < 0 || t.Detect.FieldConfidence > 1 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     path + ".detect.fieldConfidence",
			Message:  "confidence must be within [0, 1]",
		})
	}

	if t.Schema != nil {
		if err := t.Schema.Validate(); err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     path + ".schema",
				Message:  err.Error(),
			})
		}
		issues = append(issues, validateForeignTargets(path, t)...)
	}

	names := map[string]struct{}{}
	for i, r := range t.Resources {
		rp := fmt.Sprintf("%s.resources[%d]", path, i)
		if strings.TrimSpace(r.Name) == "" {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     rp + ".name",
				Message:  "foreign key targets must be named",
			})
		} else if _, dup := names[r.Name]; dup {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     rp + ".name",
				Message:  fmt.Sprintf("duplicate resource name %q", r.Name),
			})
		}
		names[r.Name] = struct{}{}
		issues = append(issues, ValidateTask(rp, r)...)
	}
	return issues
}

// validateForeignTargets warns when a foreign key names a resource that the
// task does not provide.
func validateForeignTargets(path string, t Task) []Issue {
	var issues []Issue
	provided := map[string]struct{}{}
	for _, r := range t.Resources {
		provided[r.Name] = struct{}{}
	}
	for i, fk := range t.Schema.ForeignKeys {
		target := fk.Reference.Resource
		if target == "" || target == t.Name {
			continue
		}
		if _, ok := provided[target]; !ok {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     fmt.Sprintf("%s.schema.foreignKeys[%d].reference.resource", path, i),
				Message:  fmt.Sprintf("resource %q is not listed in resources", target),
			})
		}
	}
	return issues
}
