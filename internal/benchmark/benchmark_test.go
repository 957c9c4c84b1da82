// SPDX-License-Identifier: MPL-2.0

package benchmark

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/luabundle/luabundle/internal/config"
	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/internal/luarun"
	"github.com/luabundle/luabundle/internal/testutil"
	"github.com/luabundle/luabundle/pkg/bundle"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

// projectModules is the size of the generated project.
const projectModules = 60

// sampleModule is a representative module: locals, closures, tables, a
// long string and both require forms.
const sampleModule = `
local util = require("lib.util")
local json = require "vendor.json"
local M = {}

local defaults = {
	name = "sample",
	retries = 3,
	tags = { "a", "b", "c" },
}

--[[ block comment
with require("not.a.module") inside ]]

local usage = [==[
usage: sample [options]
  -v  verbose
]==]

function M.merge(into, from)
	for k, v in pairs(from) do
		if type(v) == "table" and type(into[k]) == "table" then
			M.merge(into[k], v)
		else
			into[k] = v
		end
	end
	return into
end

function M.run(opts)
	local cfg = M.merge(M.merge({}, defaults), opts or {})
	local out = {}
	for i = 1, cfg.retries do
		out[#out + 1] = util.format("%s:%d", cfg.name, i)
	end
	return json.encode(out), usage
end

return M
`

// writeProject generates a project of n modules. Module i requires the next
// two modules, so the graph is wide and deep with shared dependencies.
func writeProject(tb testing.TB, n int) string {
	tb.Helper()
	dir := tb.TempDir()
	files := map[string]string{
		"lib/util.lua":    "local M = {}\nfunction M.format(f, ...) return string.format(f, ...) end\nreturn M\n",
		"vendor/json.lua": "local M = {}\nfunction M.encode(t) return \"[\" .. table.concat(t, \",\") .. \"]\" end\nreturn M\n",
	}
	for i := range n {
		var sb strings.Builder
		for _, next := range []int{i + 1, i + 2} {
			if next < n {
				fmt.Fprintf(&sb, "local m%d = require(\"mods.m%d\")\n", next, next)
			}
		}
		sb.WriteString(sampleModule)
		files[fmt.Sprintf("mods/m%d.lua", i)] = sb.String()
	}
	files["main.lua"] = "local m = require(\"mods.m0\")\nreturn m.run({ retries = 2 })\n"
	testutil.WriteTree(tb, dir, files)
	return dir
}

// BenchmarkParse benchmarks lexing, parsing and require classification of
// one module. This exercises the hot path in pkg/luasyntax.
func BenchmarkParse(b *testing.B) {
	src := []byte(sampleModule)

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, _, err := luasyntax.Parse(src, luasyntax.WithVersion(luasyntax.Lua54)); err != nil {
			b.Fatalf("Parse failed: %v", err)
		}
	}
}

// BenchmarkGraphBuild benchmarks graph construction with sequential and
// parallel parsing.
func BenchmarkGraphBuild(b *testing.B) {
	dir := writeProject(b, projectModules)
	entry := filepath.Join(dir, "main.lua")

	for _, jobs := range []int{1, 0} {
		b.Run(fmt.Sprintf("jobs=%d", jobs), func(b *testing.B) {
			o := config.DefaultConfig().BundleOptions()
			o.Jobs = jobs
			opts := o.GraphOptions()

			b.ResetTimer()
			for b.Loop() {
				g, _, err := graph.Build(context.Background(), entry, opts)
				if err != nil {
					b.Fatalf("Build failed: %v", err)
				}
				if g.Len() != projectModules+3 {
					b.Fatalf("Len() = %d, want %d", g.Len(), projectModules+3)
				}
			}
		})
	}
}

// BenchmarkBundleFile benchmarks the full pipeline from entry file to bundle
// text.
func BenchmarkBundleFile(b *testing.B) {
	dir := writeProject(b, projectModules)
	entry := filepath.Join(dir, "main.lua")
	opts := config.DefaultConfig().BundleOptions()

	b.ReportAllocs()
	b.ResetTimer()
	for b.Loop() {
		if _, _, err := bundle.BundleFile(context.Background(), entry, opts); err != nil {
			b.Fatalf("BundleFile failed: %v", err)
		}
	}
}

// BenchmarkUnbundle benchmarks reading modules back from a bundle.
func BenchmarkUnbundle(b *testing.B) {
	bun := buildBundle(b)

	b.ResetTimer()
	for b.Loop() {
		modules, err := bundle.Unbundle(bun.Text)
		if err != nil {
			b.Fatalf("Unbundle failed: %v", err)
		}
		if len(modules) != len(bun.Modules) {
			b.Fatalf("got %d modules, want %d", len(modules), len(bun.Modules))
		}
	}
}

// BenchmarkSourceMapRewrite benchmarks mapping an error traceback back to
// module positions.
func BenchmarkSourceMapRewrite(b *testing.B) {
	bun := buildBundle(b)
	var sb strings.Builder
	sb.WriteString("stack traceback:\n")
	for line := 1; line < bun.SourceMap.Lines; line += bun.SourceMap.Lines / 20 {
		fmt.Fprintf(&sb, "\tbundle.lua:%d: in function <bundle.lua:%d>\n", line, line)
	}
	trace := sb.String()

	b.ResetTimer()
	for b.Loop() {
		_ = bun.SourceMap.Rewrite(trace, "bundle.lua")
	}
}

// BenchmarkRunBundle benchmarks executing a bundle in the embedded VM.
func BenchmarkRunBundle(b *testing.B) {
	bun := buildBundle(b)

	b.ResetTimer()
	for b.Loop() {
		if _, err := luarun.Run(context.Background(), bun.Text, luarun.Options{Stdout: io.Discard}); err != nil {
			b.Fatalf("Run failed: %v", err)
		}
	}
}

// BenchmarkConfigLoad benchmarks loading a project file through the CUE
// schema and viper.
func BenchmarkConfigLoad(b *testing.B) {
	dir := b.TempDir()
	testutil.MustWriteFile(b, filepath.Join(dir, config.ProjectFileName), `
entry: "src/main.lua"
output: "dist/app.lua"
paths: ["src", "vendor"]
lua_version: "5.4"
ignore: ["socket", "socket.*"]
watch: { debounce: "150ms" }
`)
	provider := config.NewProvider()
	opts := config.LoadOptions{ProjectDir: dir, ConfigDirPath: b.TempDir()}

	b.ResetTimer()
	for b.Loop() {
		if _, err := provider.Load(context.Background(), opts); err != nil {
			b.Fatalf("Load failed: %v", err)
		}
	}
}

func buildBundle(b *testing.B) *bundle.Bundle {
	b.Helper()
	dir := writeProject(b, projectModules)
	bun, _, err := bundle.BundleFile(context.Background(), filepath.Join(dir, "main.lua"), config.DefaultConfig().BundleOptions())
	if err != nil {
		b.Fatalf("BundleFile failed: %v", err)
	}
	return bun
}
