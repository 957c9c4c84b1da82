// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

// metadataPrefix starts the optional metadata header line.
const metadataPrefix = "-- Bundled by luabundle "

var (
	// ErrNoEntry is returned when the wrapped modules do not include the entry.
	ErrNoEntry = errors.New("entry module missing from bundle")

	// ErrDuplicateModule is returned when two wrapped modules share an ID.
	ErrDuplicateModule = errors.New("duplicate module")
)

type (
	// Bundle is an assembled single-file program.
	Bundle struct {
		Entry graph.ModuleID
		// Modules are the wrapped modules in bundle order.
		Modules []WrappedModule
		// Shim is the runtime prologue.
		Shim string
		// Invocation is the closing statement that runs the entry.
		Invocation string
		// Text is the complete bundle.
		Text string
		// SourceMap locates module lines in Text.
		SourceMap *SourceMap
	}

	// Metadata is the JSON payload of the optional header line.
	Metadata struct {
		Version        string      `json:"version,omitempty"`
		RootModuleName string      `json:"rootModuleName"`
		LuaVersion     string      `json:"luaVersion"`
		Isolate        bool        `json:"isolate,omitempty"`
		Identifiers    Identifiers `json:"identifiers"`
		Modules        []string    `json:"modules"`
	}

	// lineWriter tracks the number of the next line to be written.
	lineWriter struct {
		sb   strings.Builder
		line int
	}
)

// Assemble concatenates the shim, the wrapped modules in graph order, and
// the entry invocation. Modules are emitted in the graph's discovery order
// regardless of the order of wrapped.
func Assemble(g *graph.Graph, wrapped []WrappedModule, opts Options) (*Bundle, error) {
	byID := make(map[graph.ModuleID]WrappedModule, len(wrapped))
	for _, w := range wrapped {
		if _, dup := byID[w.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateModule, w.ID)
		}
		byID[w.ID] = w
	}
	entry, ok := byID[g.Entry]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoEntry, g.Entry)
	}

	b := &Bundle{
		Entry:      g.Entry,
		Shim:       Shim(g.Entry, g.Aliases(), opts),
		Invocation: Invocation(),
		SourceMap:  &SourceMap{},
	}
	for _, m := range g.Modules() {
		if w, ok := byID[m.ID]; ok {
			b.Modules = append(b.Modules, w)
		}
	}

	out := &lineWriter{line: 1}
	if entry.Shebang != "" {
		out.write(entry.Shebang + "\n")
	}
	if opts.Metadata {
		header, err := metadataLine(b, opts)
		if err != nil {
			return nil, err
		}
		out.write(header)
	}
	out.write(b.Shim)
	for _, w := range b.Modules {
		b.SourceMap.Modules = append(b.SourceMap.Modules, SourceMapEntry{
			ID:    string(w.ID),
			Path:  w.Path,
			Start: out.line + w.BodyOffset,
			Lines: w.Lines,
		})
		out.write(w.Text)
	}
	out.write(b.Invocation)

	b.Text = out.sb.String()
	b.SourceMap.Lines = out.line - 1
	return b, nil
}

func metadataLine(b *Bundle, opts Options) (string, error) {
	meta := Metadata{
		Version:        opts.ToolVersion,
		RootModuleName: string(b.Entry),
		LuaVersion:     opts.LuaVersion.String(),
		Isolate:        opts.Isolate,
		Identifiers:    opts.Identifiers.withDefaults(),
	}
	for _, w := range b.Modules {
		meta.Modules = append(meta.Modules, string(w.ID))
	}
	data, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode metadata: %w", err)
	}
	return metadataPrefix + string(data) + "\n", nil
}

// ReadMetadata decodes the metadata header of a bundle, if present.
func ReadMetadata(text string) (*Metadata, bool) {
	for i, line := range strings.SplitN(text, "\n", 3) {
		if i == 0 && strings.HasPrefix(line, "#") {
			continue
		}
		payload, ok := strings.CutPrefix(line, metadataPrefix)
		if !ok {
			return nil, false
		}
		var meta Metadata
		if err := json.Unmarshal([]byte(payload), &meta); err != nil {
			return nil, false
		}
		return &meta, true
	}
	return nil, false
}

// Verify parses the assembled text to confirm it is valid Lua for version.
func (b *Bundle) Verify(version luasyntax.Version) error {
	if _, err := luasyntax.ParseChunk([]byte(b.Text), luasyntax.WithVersion(version)); err != nil {
		return fmt.Errorf("bundle does not parse: %w", err)
	}
	return nil
}

func (w *lineWriter) write(s string) {
	w.sb.WriteString(s)
	w.line += strings.Count(s, "\n")
}
