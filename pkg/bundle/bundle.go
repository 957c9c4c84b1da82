// SPDX-License-Identifier: MPL-2.0

// Package bundle turns a Lua program into a single self-contained source file.
//
// Each module reached from the entry is wrapped, verbatim, in a closure that
// is registered under the module's name. A runtime shim at the top of the file
// replaces require with a lookup into that table, running every module at
// most once. The bundle ends by invoking the entry module with the script's
// arguments.
//
// A line-mapping comment precedes every module so bundle lines can be traced
// back to the original files, either through the returned SourceMap or by
// reading the comments again (Unbundle).
package bundle

import (
	"context"

	"github.com/luabundle/luabundle/internal/graph"
)

// BundleFile builds the dependency graph of entry and assembles the bundle.
// Diagnostics are returned on success and when dynamic requires are promoted
// to an error; on any error the bundle is nil.
func BundleFile(ctx context.Context, entry string, opts Options) (*Bundle, []graph.Diagnostic, error) {
	if err := opts.Identifiers.Validate(); err != nil {
		return nil, nil, err
	}
	g, diags, err := graph.Build(ctx, entry, opts.GraphOptions())
	if err != nil {
		return nil, diags, err
	}
	b, err := FromGraph(g, opts)
	if err != nil {
		return nil, diags, err
	}
	return b, diags, nil
}

// FromGraph wraps every module of g and assembles them.
func FromGraph(g *graph.Graph, opts Options) (*Bundle, error) {
	if opts.BaseDir == "" && len(g.Roots) > 0 {
		opts.BaseDir = g.Roots[0]
	}
	if opts.RootModuleName == "" {
		opts.RootModuleName = string(g.Entry)
	}
	modules := g.Modules()
	wrapped := make([]WrappedModule, len(modules))
	for i, m := range modules {
		wrapped[i] = Wrap(m, opts)
	}
	return Assemble(g, wrapped, opts)
}
