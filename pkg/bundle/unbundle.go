// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

// ErrMalformedBundle is returned when line-mapping comments do not match the
// text around them.
var ErrMalformedBundle = errors.New("malformed bundle")

type (
	// UnbundledModule is a module recovered from a bundle.
	UnbundledModule struct {
		ID      graph.ModuleID
		Path    string
		Source  string
		IsEntry bool
	}

	// MalformedBundleError reports where a bundle stopped making sense.
	// It wraps ErrMalformedBundle for errors.Is() compatibility.
	MalformedBundleError struct {
		Line   int
		Reason string
	}
)

// Unbundle recovers module sources from bundle text by following the
// line-mapping comments. Sources come back exactly as bundled, except that a
// missing final newline is not restored and lone carriage returns come back
// as newlines.
func Unbundle(text string) ([]UnbundledModule, error) {
	lines := strings.SplitAfter(text, "\n")
	var out []UnbundledModule
	for i := 0; i < len(lines); i++ {
		rest, ok := strings.CutPrefix(lines[i], markerPrefix)
		if !ok {
			continue
		}
		m, n, err := parseMarker(strings.TrimRight(rest, "\r\n"), i+1)
		if err != nil {
			return nil, err
		}

		bodyStart := i + 2
		closing := bodyStart + n
		if closing >= len(lines) {
			return nil, &MalformedBundleError{Line: i + 1, Reason: fmt.Sprintf("module %q runs past the end of the bundle", m.ID)}
		}
		if !strings.HasPrefix(lines[closing], "end)") {
			return nil, &MalformedBundleError{Line: closing + 1, Reason: fmt.Sprintf("expected end of module %q", m.ID)}
		}

		body := strings.Join(lines[bodyStart:closing], "")
		if m.shebang {
			body = strings.TrimPrefix(body, shebangComment)
		}
		out = append(out, UnbundledModule{ID: m.ID, Path: m.Path, Source: body, IsEntry: m.IsEntry})
		i = closing
	}
	if len(out) == 0 {
		return nil, &MalformedBundleError{Reason: "no line-mapping comments found"}
	}
	return out, nil
}

type markerInfo struct {
	UnbundledModule
	shebang bool
}

// parseMarker decodes `"key" path lines=N [flags...]`.
func parseMarker(s string, line int) (markerInfo, int, error) {
	malformed := func(reason string) (markerInfo, int, error) {
		return markerInfo{}, 0, &MalformedBundleError{Line: line, Reason: reason}
	}

	key, n, err := luasyntax.ReadString(s)
	if err != nil {
		return malformed("bad module key: " + err.Error())
	}
	rest := strings.TrimPrefix(s[n:], " ")
	idx := strings.LastIndex(rest, " lines=")
	if idx < 0 {
		return malformed("missing line count")
	}
	fields := strings.Fields(rest[idx+len(" lines="):])
	if len(fields) == 0 {
		return malformed("missing line count")
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return malformed(fmt.Sprintf("bad line count %q", fields[0]))
	}

	m := markerInfo{UnbundledModule: UnbundledModule{
		ID:      graph.ModuleID(key),
		Path:    rest[:idx],
		IsEntry: slices.Contains(fields[1:], flagEntry),
	}}
	m.shebang = slices.Contains(fields[1:], flagShebang)
	return m, count, nil
}

// WriteModules writes recovered modules under dir and returns the file paths
// written. Paths that would escape dir are replaced by one derived from the
// module ID.
func WriteModules(dir string, modules []UnbundledModule) ([]string, error) {
	var written []string
	for _, m := range modules {
		target := filepath.Join(dir, modulePath(m))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("create directory for %q: %w", m.ID, err)
		}
		if err := os.WriteFile(target, []byte(m.Source), 0o644); err != nil {
			return written, fmt.Errorf("write module %q: %w", m.ID, err)
		}
		written = append(written, target)
	}
	return written, nil
}

func modulePath(m UnbundledModule) string {
	if p := filepath.FromSlash(m.Path); p != "" && filepath.IsLocal(p) {
		return p
	}
	p := filepath.FromSlash(strings.ReplaceAll(string(m.ID), ".", "/") + ".lua")
	if filepath.IsLocal(p) {
		return p
	}
	return filepath.Base(p)
}

// Error implements the error interface for MalformedBundleError.
func (e *MalformedBundleError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed bundle at line %d: %s", e.Line, e.Reason)
	}
	return "malformed bundle: " + e.Reason
}

// Unwrap returns ErrMalformedBundle for errors.Is() compatibility.
func (e *MalformedBundleError) Unwrap() error { return ErrMalformedBundle }
