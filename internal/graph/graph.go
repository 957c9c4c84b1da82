// SPDX-License-Identifier: MPL-2.0

// Package graph builds the dependency graph of a Lua program.
//
// Starting from an entry file, Build resolves and parses every module reached
// through a literal require call, breadth first. Each file is parsed exactly
// once: a second require string naming an already-loaded file becomes an
// alias of that module. Modules and requires keep their discovery order, so
// the same input always yields the same graph. Dynamic requires, cycles and
// skipped modules are returned as diagnostics rather than logged.
package graph

import (
	"path/filepath"
	"slices"

	"github.com/luabundle/luabundle/internal/dag"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

type (
	// ModuleID identifies a module in the graph: the require string that
	// first reached it, or the root module name for the entry.
	ModuleID string

	// Module is one loaded source file. It is not modified after Build returns.
	Module struct {
		ID ModuleID
		// Path is the absolute file path.
		Path string
		// Source is the module text as bundled (after preprocessing).
		Source string
		// Requires lists every require call in source order, duplicates kept.
		Requires []luasyntax.Require
		// RequiredIDs lists the resolved target of every literal require in
		// source order, duplicates kept. Ignored and missing modules are absent.
		RequiredIDs []ModuleID
		// Aliases are other require strings that resolved to this module.
		Aliases []string
		IsEntry bool
	}

	// Alias maps an extra require string to the module it resolved to.
	Alias struct {
		Name   string
		Target ModuleID
	}

	// Graph is the dependency graph produced by Build.
	Graph struct {
		// Entry is the entry module's ID.
		Entry ModuleID
		// Roots are the absolute search roots used for resolution.
		Roots []string

		modules map[ModuleID]*Module
		order   []ModuleID
		aliases []Alias
		edges   *dag.Graph
		cycles  [][]ModuleID
	}
)

func newGraph(roots []string) *Graph {
	return &Graph{
		Roots:   roots,
		modules: make(map[ModuleID]*Module),
		edges:   dag.New(),
	}
}

func (g *Graph) add(m *Module) {
	g.modules[m.ID] = m
	g.order = append(g.order, m.ID)
	g.edges.AddNode(string(m.ID))
}

// Modules returns the modules in first-discovery order; the entry is first.
func (g *Graph) Modules() []*Module {
	out := make([]*Module, len(g.order))
	for i, id := range g.order {
		out[i] = g.modules[id]
	}
	return out
}

// Module looks up a module by ID.
func (g *Graph) Module(id ModuleID) (*Module, bool) {
	m, ok := g.modules[id]
	return m, ok
}

// EntryModule returns the entry module.
func (g *Graph) EntryModule() *Module {
	return g.modules[g.Entry]
}

// Len returns the number of modules.
func (g *Graph) Len() int { return len(g.order) }

// Aliases returns the alias table in discovery order.
func (g *Graph) Aliases() []Alias {
	return slices.Clone(g.aliases)
}

// Cycles returns every require cycle as a closed path (first == last).
func (g *Graph) Cycles() [][]ModuleID {
	out := make([][]ModuleID, len(g.cycles))
	for i, c := range g.cycles {
		out[i] = slices.Clone(c)
	}
	return out
}

// Dependencies returns the distinct modules m requires, in first-require order.
func (g *Graph) Dependencies(id ModuleID) []ModuleID {
	var out []ModuleID
	for _, dep := range g.edges.Successors(string(id)) {
		if !slices.Contains(out, ModuleID(dep)) {
			out = append(out, ModuleID(dep))
		}
	}
	return out
}

// LoadOrder returns the modules dependencies-first. It fails with a
// *dag.CycleError when the graph has a cycle, since no such order exists.
func (g *Graph) LoadOrder() ([]ModuleID, error) {
	reversed := dag.New()
	for _, id := range g.order {
		reversed.AddNode(string(id))
	}
	for _, id := range g.order {
		for _, dep := range g.modules[id].RequiredIDs {
			reversed.AddEdge(string(dep), string(id))
		}
	}
	sorted, err := reversed.TopologicalSort()
	if err != nil {
		return nil, err
	}
	out := make([]ModuleID, len(sorted))
	for i, s := range sorted {
		out[i] = ModuleID(s)
	}
	return out, nil
}

// RelPath returns a module path relative to the first search root that
// contains it, falling back to the absolute path.
func (g *Graph) RelPath(path string) string {
	for _, root := range g.Roots {
		rel, err := filepath.Rel(root, path)
		if err == nil && filepath.IsLocal(rel) {
			return filepath.ToSlash(rel)
		}
	}
	return filepath.ToSlash(path)
}
