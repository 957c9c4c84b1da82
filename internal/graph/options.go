// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

const (
	// DynamicWarn reports dynamic requires as warnings.
	DynamicWarn DynamicPolicy = "warn"
	// DynamicError fails the build after traversal if any dynamic require exists.
	DynamicError DynamicPolicy = "error"
	// DynamicIgnore reports dynamic requires at info severity.
	DynamicIgnore DynamicPolicy = "ignore"

	// DefaultRootModuleName is the ID given to the entry module.
	DefaultRootModuleName = "__root"
)

type (
	// DynamicPolicy decides how dynamic requires affect the build. Every
	// policy still reports them as diagnostics.
	DynamicPolicy string

	// PreprocessFunc may rewrite a module's source before it is parsed.
	// Build calls it from several goroutines at once when Jobs is above one,
	// so it must be safe for concurrent use.
	PreprocessFunc func(id ModuleID, path string, src []byte) ([]byte, error)

	// Options configures Build.
	Options struct {
		// Roots are the module search roots. Empty means the entry's directory.
		Roots []string
		// Templates are resolver path templates. Empty means resolve.DefaultTemplates.
		Templates []string
		// Separator replaces '.' in module names. Empty means "/".
		Separator string
		// RootModuleName is the entry's module ID. Empty means DefaultRootModuleName.
		RootModuleName string
		// LuaVersion selects the accepted syntax.
		LuaVersion luasyntax.Version
		// OnDynamicRequire is the dynamic require policy. Empty means DynamicWarn.
		OnDynamicRequire DynamicPolicy
		// OnMissingModule is the policy for unresolved non-entry modules.
		OnMissingModule resolve.MissingPolicy
		// Ignore lists module name globs that are never bundled.
		Ignore resolve.Patterns
		// Optional lists module name globs that may be missing.
		Optional resolve.Patterns
		// Jobs bounds parallel reads and parses per traversal level.
		// Zero means one per CPU.
		Jobs int
		// Preprocess, when set, runs on every module source before parsing.
		Preprocess PreprocessFunc
	}
)

// IsValid returns whether the DynamicPolicy is one of the defined values.
// The zero value is valid and means DynamicWarn.
func (p DynamicPolicy) IsValid() (bool, []error) {
	switch p {
	case "", DynamicWarn, DynamicError, DynamicIgnore:
		return true, nil
	default:
		return false, []error{&InvalidDynamicPolicyError{Value: p}}
	}
}

// String returns the policy name.
func (p DynamicPolicy) String() string {
	if p == "" {
		return string(DynamicWarn)
	}
	return string(p)
}

// severity maps the policy to the severity of dynamic require diagnostics.
func (p DynamicPolicy) severity() Severity {
	switch p {
	case DynamicError:
		return SeverityError
	case DynamicIgnore:
		return SeverityInfo
	default:
		return SeverityWarning
	}
}

// Validate checks every enum and pattern field and returns all problems joined.
func (o Options) Validate() error {
	var errs []error
	if _, e := o.OnDynamicRequire.IsValid(); e != nil {
		errs = append(errs, e...)
	}
	if _, e := o.OnMissingModule.IsValid(); e != nil {
		errs = append(errs, e...)
	}
	if _, e := o.LuaVersion.IsValid(); e != nil {
		errs = append(errs, e...)
	}
	if err := o.Ignore.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := o.Optional.Validate(); err != nil {
		errs = append(errs, err)
	}
	if o.Jobs < 0 {
		errs = append(errs, fmt.Errorf("jobs must not be negative, got %d", o.Jobs))
	}
	return errors.Join(errs...)
}

func (o Options) withDefaults(entryAbs string) Options {
	if len(o.Roots) == 0 {
		o.Roots = []string{filepath.Dir(entryAbs)}
	}
	if o.RootModuleName == "" {
		o.RootModuleName = DefaultRootModuleName
	}
	if o.Jobs < 1 {
		o.Jobs = runtime.NumCPU()
	}
	return o
}
