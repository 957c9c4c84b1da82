// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"errors"
	"fmt"
	"strings"

	cueerrors "cuelang.org/go/cue/errors"
)

// ErrSchema is wrapped by every SchemaError.
var ErrSchema = errors.New("schema validation failed")

type (
	// Problem is one CUE error, located by field path.
	Problem struct {
		// Path is the field in JSON-path notation ("identifiers.require",
		// "paths[1]"). Empty for document-level errors such as syntax errors.
		Path    string
		Message string
	}

	// SchemaError collects the problems CUE found in one file.
	// It wraps ErrSchema for errors.Is() compatibility.
	SchemaError struct {
		File     string
		Problems []Problem
	}
)

// FormatError converts a CUE error into a *SchemaError naming the file and
// the offending fields. Plain errors become a single document-level problem.
func FormatError(err error, file string) error {
	if err == nil {
		return nil
	}
	list := cueerrors.Errors(err)
	se := &SchemaError{File: file}
	for _, e := range list {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" {
			if rest, ok := strings.CutPrefix(msg, path); ok {
				msg = strings.TrimSpace(strings.TrimPrefix(rest, ":"))
			}
		}
		se.Problems = append(se.Problems, Problem{Path: path, Message: msg})
	}
	return se
}

// formatPath renders ["paths", "1"] as "paths[1]".
func formatPath(path []string) string {
	var sb strings.Builder
	for i, part := range path {
		switch {
		case i > 0 && isIndex(part):
			sb.WriteString("[" + part + "]")
		case i > 0:
			sb.WriteString("." + part)
		default:
			sb.WriteString(part)
		}
	}
	return sb.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// String formats the problem as "path: message".
func (p Problem) String() string {
	if p.Path == "" {
		return p.Message
	}
	return p.Path + ": " + p.Message
}

// Error implements the error interface for SchemaError.
func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: %s", e.File, e.Problems[0])
	}
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = p.String()
	}
	return fmt.Sprintf("%s: validation failed:\n  %s", e.File, strings.Join(lines, "\n  "))
}

// Unwrap returns ErrSchema for errors.Is() compatibility.
func (e *SchemaError) Unwrap() error { return ErrSchema }
