// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

type (
	// node is a module being loaded together with how it was reached.
	node struct {
		module *Module
		parent *node
		err    error
	}

	builder struct {
		opts     Options
		resolver *resolve.Resolver
		graph    *Graph
		diags    []Diagnostic
		dynamic  []Diagnostic
		// byPath is the visited set, keyed by absolute file path.
		byPath map[string]*node
		// byName caches the outcome of resolving a require string.
		byName map[string]ModuleID
	}
)

// Build traverses the program rooted at entryPath and returns its dependency
// graph. Diagnostics are returned even when the build fails with a
// *DynamicRequireError. Any other failure is a *BuildError or a context error,
// and the graph is nil.
func Build(ctx context.Context, entryPath string, opts Options) (*Graph, []Diagnostic, error) {
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	// The entry is resolved before defaults so a missing entry is reported
	// against the path the caller gave.
	entryResolver, err := resolve.New(resolve.Options{})
	if err != nil {
		return nil, nil, err
	}
	rootName := opts.RootModuleName
	if rootName == "" {
		rootName = DefaultRootModuleName
	}
	entryAbs, err := entryResolver.ResolveEntry(entryPath)
	if err != nil {
		return nil, nil, &BuildError{Module: ModuleID(rootName), Chain: []ModuleID{ModuleID(rootName)}, Err: err}
	}

	opts = opts.withDefaults(entryAbs)
	res, err := resolve.New(resolve.Options{
		Roots:     opts.Roots,
		Templates: opts.Templates,
		Separator: opts.Separator,
	})
	if err != nil {
		return nil, nil, err
	}

	b := &builder{
		opts:     opts,
		resolver: res,
		graph:    newGraph(res.Roots()),
		byPath:   make(map[string]*node),
		byName:   make(map[string]ModuleID),
	}
	if err := b.run(ctx, entryAbs); err != nil {
		return nil, nil, err
	}
	b.detectCycles()

	if opts.OnDynamicRequire == DynamicError && len(b.dynamic) > 0 {
		return nil, b.diags, &DynamicRequireError{Requires: b.dynamic}
	}
	return b.graph, b.diags, nil
}

func (b *builder) run(ctx context.Context, entryAbs string) error {
	rootID := ModuleID(b.opts.RootModuleName)
	root := &node{module: &Module{ID: rootID, Path: entryAbs, IsEntry: true}}
	b.byPath[entryAbs] = root
	b.graph.Entry = rootID
	b.graph.add(root.module)

	frontier := []*node{root}
	for len(frontier) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := b.load(ctx, frontier); err != nil {
			return err
		}

		var next []*node
		for _, n := range frontier {
			discovered, err := b.link(n)
			if err != nil {
				return err
			}
			next = append(next, discovered...)
		}
		frontier = next
	}
	return nil
}

// load reads and parses every node of one level. Work runs on up to Jobs
// goroutines; failures are reported for the first failing node in level
// order so the error does not depend on scheduling.
func (b *builder) load(ctx context.Context, level []*node) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.opts.Jobs)
	for _, n := range level {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n.err = b.parse(n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, n := range level {
		if n.err == nil {
			continue
		}
		buildErr := &BuildError{
			Module: n.module.ID,
			Path:   n.module.Path,
			Chain:  n.chain(),
			Err:    n.err,
		}
		var synErr *luasyntax.SyntaxError
		if errors.As(n.err, &synErr) {
			buildErr.Pos = synErr.Pos
		}
		return buildErr
	}
	return nil
}

// parse fills in the node's source and requires. It touches only its own node.
func (b *builder) parse(n *node) error {
	m := n.module
	src, err := os.ReadFile(m.Path)
	if err != nil {
		return fmt.Errorf("read module: %w", err)
	}
	if b.opts.Preprocess != nil {
		if src, err = b.opts.Preprocess(m.ID, m.Path, src); err != nil {
			return fmt.Errorf("preprocess module: %w", err)
		}
	}
	_, reqs, err := luasyntax.Parse(src, luasyntax.WithVersion(b.opts.LuaVersion))
	if err != nil {
		return err
	}
	m.Source = string(src)
	m.Requires = reqs
	return nil
}

// link resolves the requires of a loaded node in source order and returns
// the modules it discovered. It runs on the calling goroutine only.
func (b *builder) link(n *node) ([]*node, error) {
	m := n.module
	var discovered []*node
	for _, req := range m.Requires {
		if req.Kind == luasyntax.Dynamic {
			d := b.diagnostic(m, req, b.opts.OnDynamicRequire.severity(), CodeDynamicRequire,
				fmt.Sprintf("non-literal require found in %q at %d:%d", m.ID, req.Pos.Line, req.Pos.Column))
			b.dynamic = append(b.dynamic, d)
			b.diags = append(b.diags, d)
			continue
		}

		name := req.Value
		if b.opts.Ignore.Match(name) {
			b.diags = append(b.diags, b.diagnostic(m, req, SeverityInfo, CodeIgnored,
				fmt.Sprintf("module %q is ignored and left to the host require", name)))
			continue
		}
		if id, ok := b.byName[name]; ok {
			m.RequiredIDs = append(m.RequiredIDs, id)
			b.graph.edges.AddEdge(string(m.ID), string(id))
			continue
		}

		path, err := b.resolver.Resolve(name, string(m.ID))
		if err != nil {
			if b.opts.OnMissingModule == resolve.MissingWarn || b.opts.Optional.Match(name) {
				d := b.diagnostic(m, req, SeverityWarning, CodeMissingOptional,
					fmt.Sprintf("module %q not found; left to the host require", name))
				d.Cause = err
				b.diags = append(b.diags, d)
				continue
			}
			return nil, &BuildError{
				Module: ModuleID(name),
				Path:   m.Path,
				Pos:    req.Pos,
				Chain:  append(n.chain(), ModuleID(name)),
				Err:    err,
			}
		}

		target, seen := b.byPath[path]
		switch {
		case seen:
			if ModuleID(name) != target.module.ID {
				target.module.Aliases = append(target.module.Aliases, name)
				b.graph.aliases = append(b.graph.aliases, Alias{Name: name, Target: target.module.ID})
			}
		case name == b.opts.RootModuleName:
			return nil, &BuildError{
				Module: ModuleID(name),
				Path:   m.Path,
				Pos:    req.Pos,
				Chain:  append(n.chain(), ModuleID(name)),
				Err:    fmt.Errorf("%w: %q resolves to %s", ErrModuleCollision, name, path),
			}
		default:
			target = &node{
				module: &Module{ID: ModuleID(name), Path: path},
				parent: n,
			}
			b.byPath[path] = target
			b.graph.add(target.module)
			discovered = append(discovered, target)
		}

		id := target.module.ID
		b.byName[name] = id
		m.RequiredIDs = append(m.RequiredIDs, id)
		b.graph.edges.AddEdge(string(m.ID), string(id))
	}
	return discovered, nil
}

func (b *builder) diagnostic(m *Module, req luasyntax.Require, sev Severity, code, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Module:   m.ID,
		Path:     m.Path,
		Line:     req.Pos.Line,
		Column:   req.Pos.Column,
		Message:  msg,
	}
}

func (b *builder) detectCycles() {
	for _, cycle := range b.graph.edges.Cycles() {
		ids := make([]ModuleID, len(cycle))
		for i, s := range cycle {
			ids[i] = ModuleID(s)
		}
		b.graph.cycles = append(b.graph.cycles, ids)

		first := b.graph.modules[ids[0]]
		b.diags = append(b.diags, Diagnostic{
			Severity: SeverityWarning,
			Code:     CodeCycle,
			Module:   first.ID,
			Path:     first.Path,
			Message:  "require cycle: " + FormatCycle(ids),
			Cycle:    ids,
		})
	}
}

// chain lists module IDs from the entry down to n.
func (n *node) chain() []ModuleID {
	var ids []ModuleID
	for cur := n; cur != nil; cur = cur.parent {
		ids = append(ids, cur.module.ID)
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}
