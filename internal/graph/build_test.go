// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/luabundle/luabundle/internal/dag"
	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/internal/testutil"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

func buildTree(t *testing.T, files map[string]string, opts Options) (*Graph, []Diagnostic, error) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)
	return Build(context.Background(), filepath.Join(dir, "main.lua"), opts)
}

func moduleIDs(g *Graph) []ModuleID {
	var ids []ModuleID
	for _, m := range g.Modules() {
		ids = append(ids, m.ID)
	}
	return ids
}

func TestBuild_Diamond(t *testing.T) {
	t.Parallel()
	g, diags, err := buildTree(t, map[string]string{
		"main.lua": `local b = require("b")
local c = require("c")
return b + c`,
		"b.lua": `return require("d") + 1`,
		"c.lua": `return require("d") + 2`,
		"d.lua": `return 10`,
	}, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %v", diags)
	}

	want := []ModuleID{DefaultRootModuleName, "b", "c", "d"}
	if got := moduleIDs(g); !slices.Equal(got, want) {
		t.Errorf("expected modules %v, got %v", want, got)
	}
	b, _ := g.Module("b")
	c, _ := g.Module("c")
	if !slices.Equal(b.RequiredIDs, []ModuleID{"d"}) || !slices.Equal(c.RequiredIDs, []ModuleID{"d"}) {
		t.Errorf("expected both b and c to link to d, got %v and %v", b.RequiredIDs, c.RequiredIDs)
	}
	if cycles := g.Cycles(); len(cycles) != 0 {
		t.Errorf("expected no cycles, got %v", cycles)
	}

	order, err := g.LoadOrder()
	if err != nil {
		t.Fatalf("LoadOrder() error: %v", err)
	}
	if order[0] != "d" || order[len(order)-1] != DefaultRootModuleName {
		t.Errorf("expected d first and the entry last, got %v", order)
	}
}

func TestBuild_Cycle(t *testing.T) {
	t.Parallel()
	g, diags, err := buildTree(t, map[string]string{
		"main.lua": `return require("a")`,
		"a.lua":    `local b = require("b") return {}`,
		"b.lua":    `local a = require("a") return {}`,
	}, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Len() != 3 {
		t.Errorf("expected each module once, got %v", moduleIDs(g))
	}

	cycles := g.Cycles()
	if len(cycles) != 1 || !slices.Equal(cycles[0], []ModuleID{"a", "b", "a"}) {
		t.Fatalf("expected cycle a -> b -> a, got %v", cycles)
	}
	if len(diags) != 1 || diags[0].Code != CodeCycle || diags[0].Severity != SeverityWarning {
		t.Fatalf("expected one cycle warning, got %v", diags)
	}
	if !strings.Contains(diags[0].Message, "a -> b -> a") {
		t.Errorf("unexpected cycle message %q", diags[0].Message)
	}

	_, err = g.LoadOrder()
	var cycleErr *dag.CycleError
	if !errors.As(err, &cycleErr) {
		t.Errorf("expected *dag.CycleError from LoadOrder, got %v", err)
	}
}

func TestBuild_SelfRequire(t *testing.T) {
	t.Parallel()
	g, diags, err := buildTree(t, map[string]string{
		"main.lua": `return require("self")`,
		"self.lua": `local me = require("self") return {}`,
	}, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("expected 2 modules, got %v", moduleIDs(g))
	}
	if len(diags) != 1 || !slices.Equal(diags[0].Cycle, []ModuleID{"self", "self"}) {
		t.Errorf("expected self cycle diagnostic, got %v", diags)
	}
}

func TestBuild_DynamicRequireReported(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.lua": `local name = "x"
local m = require(name)
return m`,
	}

	tests := []struct {
		policy   DynamicPolicy
		severity Severity
		wantErr  bool
	}{
		{"", SeverityWarning, false},
		{DynamicWarn, SeverityWarning, false},
		{DynamicIgnore, SeverityInfo, false},
		{DynamicError, SeverityError, true},
	}
	for _, tt := range tests {
		t.Run(tt.policy.String(), func(t *testing.T) {
			t.Parallel()
			g, diags, err := buildTree(t, files, Options{OnDynamicRequire: tt.policy})

			if len(diags) != 1 {
				t.Fatalf("expected exactly one diagnostic, got %v", diags)
			}
			d := diags[0]
			if d.Code != CodeDynamicRequire || d.Severity != tt.severity {
				t.Errorf("expected %s %s, got %s %s", tt.severity, CodeDynamicRequire, d.Severity, d.Code)
			}
			if d.Line != 2 || d.Column != 11 {
				t.Errorf("expected location 2:11, got %d:%d", d.Line, d.Column)
			}
			if d.Module != DefaultRootModuleName {
				t.Errorf("expected diagnostic in the entry module, got %q", d.Module)
			}

			if tt.wantErr {
				if !errors.Is(err, ErrDynamicRequire) {
					t.Fatalf("expected ErrDynamicRequire, got %v", err)
				}
				if g != nil {
					t.Error("expected nil graph on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			entry := g.EntryModule()
			if len(entry.Requires) != 1 || entry.Requires[0].Kind != luasyntax.Dynamic {
				t.Errorf("expected the dynamic require to be recorded, got %+v", entry.Requires)
			}
			if len(entry.RequiredIDs) != 0 {
				t.Errorf("dynamic require must not be followed, got %v", entry.RequiredIDs)
			}
		})
	}
}

func TestBuild_MissingModule(t *testing.T) {
	t.Parallel()
	_, _, err := buildTree(t, map[string]string{
		"main.lua": `return require("lib")`,
		"lib.lua":  `return require("foo.bar")`,
	}, Options{})

	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if buildErr.Module != "foo.bar" {
		t.Errorf("expected failing module foo.bar, got %q", buildErr.Module)
	}
	wantChain := []ModuleID{DefaultRootModuleName, "lib", "foo.bar"}
	if !slices.Equal(buildErr.Chain, wantChain) {
		t.Errorf("expected chain %v, got %v", wantChain, buildErr.Chain)
	}
	if filepath.Base(buildErr.Path) != "lib.lua" || buildErr.Pos != (luasyntax.Pos{Line: 1, Column: 8}) {
		t.Errorf("expected location lib.lua:1:8, got %s:%s", buildErr.Path, buildErr.Pos)
	}
	msg := err.Error()
	for _, want := range []string{`"foo.bar"`, `required by "lib"`} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in error %q", want, msg)
		}
	}
}

func TestBuild_MissingModuleWarnPolicy(t *testing.T) {
	t.Parallel()
	files := map[string]string{
		"main.lua": `local a = require("socket") local b = require("vendor.json") return a, b`,
	}

	g, diags, err := buildTree(t, files, Options{OnMissingModule: resolve.MissingWarn})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Len() != 1 || len(diags) != 2 {
		t.Fatalf("expected only the entry and two warnings, got %v / %v", moduleIDs(g), diags)
	}
	for _, d := range diags {
		if d.Code != CodeMissingOptional || !errors.Is(d.Cause, resolve.ErrNotFound) {
			t.Errorf("unexpected diagnostic %+v", d)
		}
	}

	// Optional patterns relax the default error policy per module.
	_, diags, err = buildTree(t, files, Options{Optional: resolve.Patterns{"socket", "vendor.*"}})
	if err != nil {
		t.Fatalf("Build() with optional patterns error: %v", err)
	}
	if len(diags) != 2 {
		t.Errorf("expected two warnings, got %v", diags)
	}
}

func TestBuild_IgnoredModules(t *testing.T) {
	t.Parallel()
	g, diags, err := buildTree(t, map[string]string{
		"main.lua":   `local s = require("socket.http") local u = require("util") return s, u`,
		"util.lua":   `return {}`,
		"socket.lua": `error("must not be bundled")`,
	}, Options{Ignore: resolve.Patterns{"socket*"}})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if want := []ModuleID{DefaultRootModuleName, "util"}; !slices.Equal(moduleIDs(g), want) {
		t.Errorf("expected %v, got %v", want, moduleIDs(g))
	}
	if len(diags) != 1 || diags[0].Code != CodeIgnored || diags[0].Severity != SeverityInfo {
		t.Errorf("expected one ignored info diagnostic, got %v", diags)
	}
}

func TestBuild_AliasesShareModule(t *testing.T) {
	t.Parallel()
	g, _, err := buildTree(t, map[string]string{
		"main.lua":         `local a = require("pkg") local b = require("pkg.init") return a == b`,
		"pkg/init.lua":     `return {}`,
		"unrelated/x.lua":  `return 1`,
		"unrelated/y.lua":  `return 2`,
		"pkg/not_used.lua": `return 3`,
	}, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Len() != 2 {
		t.Fatalf("expected entry and pkg, got %v", moduleIDs(g))
	}
	pkg, ok := g.Module("pkg")
	if !ok {
		t.Fatal("expected module pkg")
	}
	if !slices.Equal(pkg.Aliases, []string{"pkg.init"}) {
		t.Errorf("expected alias pkg.init, got %v", pkg.Aliases)
	}
	if aliases := g.Aliases(); len(aliases) != 1 || aliases[0] != (Alias{Name: "pkg.init", Target: "pkg"}) {
		t.Errorf("unexpected alias table %v", aliases)
	}
	if !slices.Equal(g.EntryModule().RequiredIDs, []ModuleID{"pkg", "pkg"}) {
		t.Errorf("expected both requires to link to pkg, got %v", g.EntryModule().RequiredIDs)
	}
}

func TestBuild_RequireOfEntryFile(t *testing.T) {
	t.Parallel()
	g, diags, err := buildTree(t, map[string]string{
		"main.lua": `return require("a")`,
		"a.lua":    `return require("main")`,
	}, Options{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if g.Len() != 2 {
		t.Errorf("expected the entry not to be loaded twice, got %v", moduleIDs(g))
	}
	entry := g.EntryModule()
	if !slices.Equal(entry.Aliases, []string{"main"}) {
		t.Errorf("expected the entry to be aliased as main, got %v", entry.Aliases)
	}
	if len(diags) != 1 || diags[0].Code != CodeCycle {
		t.Errorf("expected a cycle through the entry, got %v", diags)
	}
}

func TestBuild_RootNameCollision(t *testing.T) {
	t.Parallel()
	_, _, err := buildTree(t, map[string]string{
		"main.lua":   `return require("__root")`,
		"__root.lua": `return 1`,
	}, Options{})
	if !errors.Is(err, ErrModuleCollision) {
		t.Fatalf("expected ErrModuleCollision, got %v", err)
	}
}

func TestBuild_SyntaxErrorCarriesChain(t *testing.T) {
	t.Parallel()
	_, _, err := buildTree(t, map[string]string{
		"main.lua":   `return require("ok")`,
		"ok.lua":     `return require("broken")`,
		"broken.lua": "local x = \nif",
	}, Options{})

	if !errors.Is(err, luasyntax.ErrSyntax) {
		t.Fatalf("expected syntax error, got %v", err)
	}
	var buildErr *BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("expected *BuildError, got %T", err)
	}
	if !slices.Equal(buildErr.Chain, []ModuleID{DefaultRootModuleName, "ok", "broken"}) {
		t.Errorf("unexpected chain %v", buildErr.Chain)
	}
	if filepath.Base(buildErr.Path) != "broken.lua" || buildErr.Pos.Line != 2 {
		t.Errorf("expected error in broken.lua on line 2, got %s:%s", buildErr.Path, buildErr.Pos)
	}
}

func TestBuild_MissingEntry(t *testing.T) {
	t.Parallel()
	_, _, err := Build(context.Background(), filepath.Join(t.TempDir(), "nope.lua"), Options{})
	if !errors.Is(err, resolve.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestBuild_LuaVersionGatesSyntax(t *testing.T) {
	t.Parallel()
	files := map[string]string{"main.lua": "local x <const> = 1 return x"}
	if _, _, err := buildTree(t, files, Options{LuaVersion: luasyntax.Lua54}); err != nil {
		t.Errorf("expected 5.4 syntax to parse, got %v", err)
	}
	if _, _, err := buildTree(t, files, Options{LuaVersion: luasyntax.Lua51}); !errors.Is(err, luasyntax.ErrSyntax) {
		t.Errorf("expected syntax error under 5.1, got %v", err)
	}
}

func TestBuild_Preprocess(t *testing.T) {
	t.Parallel()
	g, _, err := buildTree(t, map[string]string{
		"main.lua": `return require("@dep@")`,
		"dep.lua":  `return 1`,
	}, Options{
		Preprocess: func(_ ModuleID, _ string, src []byte) ([]byte, error) {
			return []byte(strings.ReplaceAll(string(src), "@dep@", "dep")), nil
		},
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if _, ok := g.Module("dep"); !ok {
		t.Errorf("expected preprocessed require to be followed, got %v", moduleIDs(g))
	}
	if !strings.Contains(g.EntryModule().Source, `require("dep")`) {
		t.Errorf("expected preprocessed source to be kept, got %q", g.EntryModule().Source)
	}
}

func TestBuild_InvalidOptions(t *testing.T) {
	t.Parallel()
	_, _, err := Build(context.Background(), "main.lua", Options{
		OnDynamicRequire: "explode",
		OnMissingModule:  "shrug",
		LuaVersion:       "6.0",
	})
	for _, sentinel := range []error{ErrInvalidDynamicPolicy, resolve.ErrInvalidMissingPolicy, luasyntax.ErrInvalidVersion} {
		if !errors.Is(err, sentinel) {
			t.Errorf("expected %v in %v", sentinel, err)
		}
	}
}

func TestBuild_ContextCancelled(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	testutil.WriteTree(t, dir, map[string]string{"main.lua": "return 1"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := Build(ctx, filepath.Join(dir, "main.lua"), Options{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestOptions_JobsDefault(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		jobs int
		want int
	}{
		{name: "zero uses every CPU", jobs: 0, want: runtime.NumCPU()},
		{name: "explicit one", jobs: 1, want: 1},
		{name: "explicit value kept", jobs: 3, want: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Options{Jobs: tt.jobs}.withDefaults(filepath.Join(t.TempDir(), "main.lua"))
			if got.Jobs != tt.want {
				t.Errorf("expected Jobs %d, got %d", tt.want, got.Jobs)
			}
		})
	}

	if runtime.NumCPU() > 1 {
		if got := (Options{}).withDefaults("main.lua").Jobs; got < 2 {
			t.Errorf("expected the default to parse in parallel on %d CPUs, got %d", runtime.NumCPU(), got)
		}
	}
}

func TestBuild_DeterministicAcrossJobs(t *testing.T) {
	t.Parallel()
	files := map[string]string{}
	var main strings.Builder
	for i := range 20 {
		fmt.Fprintf(&main, "local m%d = require(\"mod%d\")\n", i, i)
		files[fmt.Sprintf("mod%d.lua", i)] = fmt.Sprintf("return require(\"shared.s%d\")", i%3)
	}
	for i := range 3 {
		files[fmt.Sprintf("shared/s%d.lua", i)] = "return {}"
	}
	files["main.lua"] = main.String()

	dir := t.TempDir()
	testutil.WriteTree(t, dir, files)
	entry := filepath.Join(dir, "main.lua")

	snapshot := func(jobs int) string {
		g, _, err := Build(context.Background(), entry, Options{Jobs: jobs})
		if err != nil {
			t.Fatalf("Build(jobs=%d) error: %v", jobs, err)
		}
		var sb strings.Builder
		for _, m := range g.Modules() {
			fmt.Fprintf(&sb, "%s %s %v\n", m.ID, g.RelPath(m.Path), m.RequiredIDs)
		}
		return sb.String()
	}

	want := snapshot(1)
	for _, jobs := range []int{2, 8, 32} {
		if got := snapshot(jobs); got != want {
			t.Errorf("jobs=%d produced a different graph:\n%s\nwant:\n%s", jobs, got, want)
		}
	}
	if !strings.HasPrefix(want, DefaultRootModuleName+" main.lua") {
		t.Errorf("expected the entry first, got:\n%s", want)
	}
}
