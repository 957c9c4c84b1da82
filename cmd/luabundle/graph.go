// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss/tree"
	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/internal/graph"
)

func newGraphCommand(app *App) *cobra.Command {
	flags := &bundleFlags{}
	cmd := &cobra.Command{
		Use:   "graph [entry]",
		Short: "Print the dependency graph of a Lua program",
		Long: `Print the dependency graph of a Lua program.

Shows the require tree from the entry, alias names, require cycles, dynamic
requires and, when the graph has no cycle, an order in which the modules
can be loaded.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.start(ctx)
			if err != nil {
				return app.failSession(nil, err)
			}
			if err := flags.apply(cmd.Flags(), s.cfg); err != nil {
				return app.failSession(s, withUsage(err, "apply flags"))
			}
			entry, err := entryArg(args, s.cfg)
			if err != nil {
				return app.failSession(s, err)
			}

			g, diags, err := graph.Build(ctx, entry, s.cfg.BundleOptions().GraphOptions())
			if err != nil {
				renderDiagnostics(app.stderr, diags, s.verbose)
				return app.failSession(s, classifyBuildError(err))
			}
			printGraph(app.stdout, g, diags)
			return nil
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

// printGraph writes the require tree and the graph's properties.
func printGraph(w io.Writer, g *graph.Graph, diags []graph.Diagnostic) {
	fmt.Fprintln(w, TitleStyle.Render(fmt.Sprintf("Dependency graph (%d modules)", g.Len())))
	fmt.Fprintln(w, requireTree(g).String())

	if aliases := g.Aliases(); len(aliases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Aliases"))
		for _, a := range aliases {
			fmt.Fprintf(w, "  %s -> %s\n", a.Name, ModuleStyle.Render(string(a.Target)))
		}
	}

	if cycles := g.Cycles(); len(cycles) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Cycles"))
		for _, c := range cycles {
			fmt.Fprintf(w, "  %s\n", WarningStyle.Render(graph.FormatCycle(c)))
		}
	}

	var dynamic []graph.Diagnostic
	for _, d := range diags {
		if d.Code == graph.CodeDynamicRequire {
			dynamic = append(dynamic, d)
		}
	}
	if len(dynamic) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Dynamic requires"))
		for _, d := range dynamic {
			fmt.Fprintf(w, "  %s\n", PathStyle.Render(fmt.Sprintf("%s:%d:%d", g.RelPath(d.Path), d.Line, d.Column)))
		}
	}

	if order, err := g.LoadOrder(); err == nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, TitleStyle.Render("Load order"))
		for i, id := range order {
			fmt.Fprintf(w, "  %d. %s\n", i+1, ModuleStyle.Render(string(id)))
		}
	}
}

// requireTree renders the graph as a tree from the entry. A module is
// expanded at its first appearance only; later ones are marked, and a
// require back into the current path is marked as a cycle.
func requireTree(g *graph.Graph) *tree.Tree {
	expanded := make(map[graph.ModuleID]bool)

	var build func(id graph.ModuleID, path []graph.ModuleID) *tree.Tree
	build = func(id graph.ModuleID, path []graph.ModuleID) *tree.Tree {
		t := tree.Root(moduleLabel(g, id, ""))
		expanded[id] = true
		path = append(path, id)
		for _, dep := range g.Dependencies(id) {
			switch {
			case slices.Contains(path, dep):
				t.Child(moduleLabel(g, dep, "cycle"))
			case expanded[dep]:
				t.Child(moduleLabel(g, dep, "see above"))
			default:
				t.Child(build(dep, slices.Clone(path)))
			}
		}
		return t
	}
	return build(g.Entry, nil)
}

func moduleLabel(g *graph.Graph, id graph.ModuleID, note string) string {
	var sb strings.Builder
	sb.WriteString(ModuleStyle.Render(string(id)))
	if m, ok := g.Module(id); ok && note == "" {
		sb.WriteString("  ")
		sb.WriteString(PathStyle.Render(g.RelPath(m.Path)))
	}
	if note != "" {
		sb.WriteString("  ")
		sb.WriteString(SubtitleStyle.Render("(" + note + ")"))
	}
	return sb.String()
}
