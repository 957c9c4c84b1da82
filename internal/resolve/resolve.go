// SPDX-License-Identifier: MPL-2.0

// Package resolve maps require-style module names to files on disk.
//
// A module name such as "foo.bar" is turned into a relative path by replacing
// dots with the configured separator and substituting it into each path
// template ("?.lua", then "?/init.lua" by default). Search roots are tried in
// order and the first existing regular file wins.
package resolve

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultSeparator replaces '.' in module names.
	DefaultSeparator = "/"

	// placeholder is substituted with the converted module name in templates.
	placeholder = "?"
)

// DefaultTemplates are tried in order for every search root: the exact file
// first, then the directory-with-index convention.
var DefaultTemplates = []string{"?.lua", "?/init.lua"}

var (
	// ErrNotFound is returned when no search root yields a file for a module.
	ErrNotFound = errors.New("module not found")

	// ErrInvalidTemplate is returned when a path template has no placeholder.
	ErrInvalidTemplate = errors.New("invalid path template")
)

type (
	// Options configures a Resolver.
	Options struct {
		// Roots are the search roots, tried in order. Relative roots are made
		// absolute against the working directory.
		Roots []string
		// Templates are path templates containing '?'. Empty means
		// DefaultTemplates.
		Templates []string
		// Separator replaces '.' in module names. Empty means DefaultSeparator.
		Separator string
	}

	// Resolver turns module names into absolute file paths.
	Resolver struct {
		roots     []string
		templates []string
		separator string
		stat      func(string) (fs.FileInfo, error)
	}

	// NotFoundError reports a module that no search root provides.
	// It wraps ErrNotFound for errors.Is() compatibility.
	NotFoundError struct {
		// Name is the require string.
		Name string
		// From is the ID of the requiring module; empty for the entry.
		From string
		// Tried lists every candidate path in the order it was checked.
		Tried []string
	}

	// InvalidTemplateError reports a path template without a placeholder.
	InvalidTemplateError struct {
		Template string
	}
)

// New validates opts and returns a Resolver.
func New(opts Options) (*Resolver, error) {
	templates := opts.Templates
	if len(templates) == 0 {
		templates = DefaultTemplates
	}
	for _, tmpl := range templates {
		if !strings.Contains(tmpl, placeholder) {
			return nil, &InvalidTemplateError{Template: tmpl}
		}
	}

	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	roots := make([]string, 0, len(opts.Roots))
	seen := make(map[string]bool, len(opts.Roots))
	for _, root := range opts.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("search root %q: %w", root, err)
		}
		if seen[abs] {
			continue
		}
		seen[abs] = true
		roots = append(roots, abs)
	}

	return &Resolver{
		roots:     roots,
		templates: templates,
		separator: sep,
		stat:      os.Stat,
	}, nil
}

// Roots returns the absolute search roots in lookup order.
func (r *Resolver) Roots() []string {
	return append([]string(nil), r.roots...)
}

// Resolve finds the file for module name required from the module with ID
// from. It returns a *NotFoundError listing every candidate when nothing
// matches.
func (r *Resolver) Resolve(name, from string) (string, error) {
	candidates := r.Candidates(name)
	for _, candidate := range candidates {
		if r.isFile(candidate) {
			return candidate, nil
		}
	}
	return "", &NotFoundError{Name: name, From: from, Tried: candidates}
}

// ResolveEntry makes the entry path absolute and checks that it is a file.
func (r *Resolver) ResolveEntry(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("entry %q: %w", path, err)
	}
	if !r.isFile(abs) {
		return "", &NotFoundError{Name: path, Tried: []string{abs}}
	}
	return abs, nil
}

// Candidates returns the paths Resolve checks for name, in order.
func (r *Resolver) Candidates(name string) []string {
	rel := r.relative(name)
	verbatim := strings.HasSuffix(name, ".lua")

	var out []string
	for _, root := range r.roots {
		if verbatim {
			out = append(out, filepath.Join(root, filepath.FromSlash(name)))
		}
		for _, tmpl := range r.templates {
			out = append(out, filepath.Join(root, filepath.FromSlash(strings.ReplaceAll(tmpl, placeholder, rel))))
		}
	}
	return out
}

// relative converts a dotted module name into a slash-separated path.
func (r *Resolver) relative(name string) string {
	rel := strings.ReplaceAll(name, ".", r.separator)
	return strings.ReplaceAll(rel, string(filepath.Separator), "/")
}

func (r *Resolver) isFile(path string) bool {
	info, err := r.stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "module %q not found", e.Name)
	if e.From != "" {
		fmt.Fprintf(&sb, " (required by %q)", e.From)
	}
	if len(e.Tried) > 0 {
		sb.WriteString("; tried:")
		for _, p := range e.Tried {
			sb.WriteString("\n\t")
			sb.WriteString(p)
		}
	}
	return sb.String()
}

// Unwrap returns ErrNotFound for errors.Is() compatibility.
func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// Error implements the error interface for InvalidTemplateError.
func (e *InvalidTemplateError) Error() string {
	return fmt.Sprintf("invalid path template %q: missing %q placeholder", e.Template, placeholder)
}

// Unwrap returns ErrInvalidTemplate for errors.Is() compatibility.
func (e *InvalidTemplateError) Unwrap() error { return ErrInvalidTemplate }
