// SPDX-License-Identifier: MPL-2.0

package bundle

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

// ErrInvalidIdentifier is returned when a configured runtime identifier is not
// a valid Lua name.
var ErrInvalidIdentifier = errors.New("invalid identifier")

var luaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type (
	// Identifiers are the Lua names the runtime shim defines. Module bodies
	// receive Register and Modules as parameters under the same names.
	Identifiers struct {
		Register string `json:"register"`
		Require  string `json:"require"`
		Loaded   string `json:"loaded"`
		Modules  string `json:"modules"`
		Aliases  string `json:"aliases"`
	}

	// Options configures BundleFile, Wrap and Assemble.
	Options struct {
		// Paths are the module search roots. Empty means the entry's directory.
		Paths []string
		// Templates are resolver path templates such as "?.lua".
		Templates []string
		// Separator replaces '.' in module names.
		Separator string
		// RootModuleName is the entry module's key. Empty means "__root".
		RootModuleName string
		// LuaVersion selects the accepted syntax.
		LuaVersion luasyntax.Version
		// OnDynamicRequire is the dynamic require policy (warn, error, ignore).
		OnDynamicRequire graph.DynamicPolicy
		// OnMissingModule is the policy for unresolved modules (error, warn).
		OnMissingModule resolve.MissingPolicy
		// Ignore lists module name globs that are left to the host require.
		Ignore resolve.Patterns
		// Optional lists module name globs that may be missing.
		Optional resolve.Patterns
		// Isolate disables the fallback to the host require for modules that
		// are not in the bundle.
		Isolate bool
		// Metadata emits a "-- Bundled by luabundle {...}" header line.
		Metadata bool
		// Identifiers overrides the runtime names. Empty fields use defaults.
		Identifiers Identifiers
		// Jobs bounds parallel module parsing. Zero means one per CPU.
		Jobs int
		// Preprocess, when set, rewrites module sources before parsing. It
		// runs concurrently when Jobs is above one.
		Preprocess graph.PreprocessFunc
		// BaseDir is the directory module paths in line-mapping comments are
		// relative to. BundleFile sets it to the first search root.
		BaseDir string
		// ToolVersion is recorded in the metadata header.
		ToolVersion string
	}

	// InvalidIdentifierError reports a runtime identifier that is not a Lua name.
	// It wraps ErrInvalidIdentifier for errors.Is() compatibility.
	InvalidIdentifierError struct {
		Field string
		Value string
	}
)

// DefaultIdentifiers returns the runtime names used when none are configured.
func DefaultIdentifiers() Identifiers {
	return Identifiers{
		Register: "__bundle_register",
		Require:  "__bundle_require",
		Loaded:   "__bundle_loaded",
		Modules:  "__bundle_modules",
		Aliases:  "__bundle_aliases",
	}
}

// withDefaults fills empty identifiers from DefaultIdentifiers.
func (ids Identifiers) withDefaults() Identifiers {
	def := DefaultIdentifiers()
	if ids.Register == "" {
		ids.Register = def.Register
	}
	if ids.Require == "" {
		ids.Require = def.Require
	}
	if ids.Loaded == "" {
		ids.Loaded = def.Loaded
	}
	if ids.Modules == "" {
		ids.Modules = def.Modules
	}
	if ids.Aliases == "" {
		ids.Aliases = def.Aliases
	}
	return ids
}

// Validate checks that every non-empty identifier is a Lua name and not a
// reserved word.
func (ids Identifiers) Validate() error {
	var errs []error
	for _, f := range []struct{ field, value string }{
		{"register", ids.Register},
		{"require", ids.Require},
		{"loaded", ids.Loaded},
		{"modules", ids.Modules},
		{"aliases", ids.Aliases},
	} {
		if f.value == "" {
			continue
		}
		if !luaName.MatchString(f.value) || luasyntax.IsKeyword(f.value) {
			errs = append(errs, &InvalidIdentifierError{Field: f.field, Value: f.value})
		}
	}
	return errors.Join(errs...)
}

// Validate checks the options without touching the filesystem.
func (o Options) Validate() error {
	return errors.Join(o.GraphOptions().Validate(), o.Identifiers.Validate())
}

// GraphOptions returns the subset of o that drives graph.Build.
func (o Options) GraphOptions() graph.Options {
	return graph.Options{
		Roots:            o.Paths,
		Templates:        o.Templates,
		Separator:        o.Separator,
		RootModuleName:   o.RootModuleName,
		LuaVersion:       o.LuaVersion,
		OnDynamicRequire: o.OnDynamicRequire,
		OnMissingModule:  o.OnMissingModule,
		Ignore:           o.Ignore,
		Optional:         o.Optional,
		Jobs:             o.Jobs,
		Preprocess:       o.Preprocess,
	}
}

// Error implements the error interface for InvalidIdentifierError.
func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s identifier %q: must be a Lua name", e.Field, e.Value)
}

// Unwrap returns ErrInvalidIdentifier for errors.Is() compatibility.
func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }
