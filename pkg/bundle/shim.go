// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

//go:embed shim.lua.tmpl
var shimSource string

var shimTemplate = template.Must(template.New("shim").Parse(shimSource))

type (
	shimData struct {
		Identifiers
		RootKey      string
		Isolate      bool
		AliasEntries []aliasEntry
	}

	aliasEntry struct {
		Name   string
		Target string
	}
)

// Shim renders the runtime prologue: the module table, the alias table, the
// loaded cache, and the replacement require. The replacement runs a module at
// most once and caches its first return value (true when it returns nothing).
// While a module is still loading, requiring it again yields nil, which is
// how cycles terminate. A module that raises is not cached and its loading
// mark is cleared before the error propagates, so a later require runs it
// again. Unknown names fall back to the host require unless opts.Isolate is
// set.
func Shim(rootID graph.ModuleID, aliases []graph.Alias, opts Options) string {
	data := shimData{
		Identifiers: opts.Identifiers.withDefaults(),
		RootKey:     luasyntax.Quote(string(rootID)),
		Isolate:     opts.Isolate,
	}
	for _, a := range aliases {
		data.AliasEntries = append(data.AliasEntries, aliasEntry{
			Name:   luasyntax.Quote(a.Name),
			Target: luasyntax.Quote(string(a.Target)),
		})
	}

	var sb strings.Builder
	// Execution only fails on template bugs; the data is plain strings.
	if err := shimTemplate.Execute(&sb, data); err != nil {
		panic(err)
	}
	return sb.String()
}

// Invocation is the final statement of a bundle. It runs the entry module
// with the script's arguments and returns everything the entry returns.
func Invocation() string {
	return "return __bundle_main(...)\n"
}
