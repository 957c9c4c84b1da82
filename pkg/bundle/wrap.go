// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

const (
	// markerPrefix starts the line-mapping comment emitted before each module.
	markerPrefix = "--@module "

	flagEntry   = "entry"
	flagShebang = "shebang"

	// shebangComment replaces the '#' of a neutralised shebang line.
	shebangComment = "-- "
)

// WrappedModule is one module serialised for the bundle.
type WrappedModule struct {
	ID graph.ModuleID
	// Key is ID as a Lua string literal.
	Key string
	// Path is the module file relative to Options.BaseDir, slash-separated.
	Path string
	// Text is the mapping comment, register header, source and closing line.
	Text string
	// Lines is the number of source lines inside the closure.
	Lines int
	// BodyOffset is the 0-based line within Text where the source starts.
	BodyOffset int
	// Shebang holds the original first line when it was neutralised.
	Shebang string
	IsEntry bool
}

// Wrap encloses the module source in a registered closure. The source is
// unchanged apart from line breaks Lua reads as "\n" anyway:
//
//	--@module "lib.util" lib/util.lua lines=12
//	__bundle_register("lib.util", function(require, _LOADED, __bundle_register, __bundle_modules, ...)
//	<source>
//	end)
//
// The header fits on one line so source line N is line BodyOffset+N of Text.
func Wrap(m *graph.Module, opts Options) WrappedModule {
	ids := opts.Identifiers.withDefaults()
	body, shebang := neutraliseShebang(normaliseLineBreaks(m.Source))
	if body != "" && !strings.HasSuffix(body, "\n") {
		body += "\n"
	}
	lines := strings.Count(body, "\n")

	w := WrappedModule{
		ID:         m.ID,
		Key:        luasyntax.Quote(string(m.ID)),
		Path:       relPath(opts.BaseDir, m.Path),
		Lines:      lines,
		BodyOffset: 2,
		Shebang:    shebang,
		IsEntry:    m.IsEntry,
	}

	var sb strings.Builder
	sb.WriteString(marker(w))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "%s(%s, function(require, _LOADED, %s, %s, ...)\n",
		ids.Register, w.Key, ids.Register, ids.Modules)
	sb.WriteString(body)
	sb.WriteString("end)\n")
	w.Text = sb.String()
	return w
}

func marker(w WrappedModule) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s%s %s lines=%d", markerPrefix, w.Key, w.Path, w.Lines)
	if w.IsEntry {
		sb.WriteString(" " + flagEntry)
	}
	if w.Shebang != "" {
		sb.WriteString(" " + flagShebang)
	}
	return sb.String()
}

// neutraliseShebang turns a leading "#..." line into a comment of the same
// line count, since '#' is only legal on the first line of a chunk.
func neutraliseShebang(src string) (body, shebang string) {
	if !strings.HasPrefix(src, "#") {
		return src, ""
	}
	line, _, _ := strings.Cut(src, "\n")
	line = strings.TrimSuffix(line, "\r")
	return shebangComment + src, line
}

// normaliseLineBreaks rewrites the breaks Lua counts as one line but
// strings.Count does not: a lone "\r" and "\n\r" both become "\n". "\r\n" is
// kept. Lua reads every break inside a long string as "\n", so the program
// is unchanged while bundle lines stay countable by '\n'.
func normaliseLineBreaks(src string) string {
	if !strings.Contains(src, "\r") {
		return src
	}
	var sb strings.Builder
	sb.Grow(len(src))
	for i := 0; i < len(src); i++ {
		switch c := src[i]; {
		case c == '\r' && i+1 < len(src) && src[i+1] == '\n':
			sb.WriteString("\r\n")
			i++
		case c == '\n' && i+1 < len(src) && src[i+1] == '\r':
			sb.WriteByte('\n')
			i++
		case c == '\r':
			sb.WriteByte('\n')
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

func relPath(base, path string) string {
	if base != "" {
		if rel, err := filepath.Rel(base, path); err == nil && filepath.IsLocal(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
