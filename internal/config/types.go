// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/bundle"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultDebounce is the delay between a file change and a rebuild in watch mode.
	DefaultDebounce = 300 * time.Millisecond
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidJobs is returned when Jobs is negative.
	ErrInvalidJobs = errors.New("invalid jobs")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme specifies the terminal color scheme preference.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	// It wraps ErrInvalidColorScheme for errors.Is() compatibility.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sub-components.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the bundler defaults. Command-line flags override it.
	Config struct {
		// Entry is the default entry file for build, graph and run.
		Entry string `json:"entry,omitempty" mapstructure:"entry"`
		// Output is the default bundle path for build.
		Output string `json:"output,omitempty" mapstructure:"output"`
		// SourceMap, when set, is where build writes the TOML source map.
		SourceMap string `json:"source_map,omitempty" mapstructure:"source_map"`
		// Paths are the module search roots.
		Paths []string `json:"paths" mapstructure:"paths"`
		// Templates are resolver path templates ("?.lua", "?/init.lua").
		Templates []string `json:"templates" mapstructure:"templates"`
		// Separator replaces '.' in module names during resolution.
		Separator string `json:"separator" mapstructure:"separator"`
		// RootModuleName is the registry key of the entry module.
		RootModuleName string `json:"root_module_name" mapstructure:"root_module_name"`
		// LuaVersion selects the accepted syntax.
		LuaVersion luasyntax.Version `json:"lua_version" mapstructure:"lua_version"`
		// OnDynamicRequire is the policy for non-literal require calls.
		OnDynamicRequire graph.DynamicPolicy `json:"on_dynamic_require" mapstructure:"on_dynamic_require"`
		// OnMissingModule is the policy for modules that cannot be resolved.
		OnMissingModule resolve.MissingPolicy `json:"on_missing_module" mapstructure:"on_missing_module"`
		// Ignore lists module name globs left to the host require.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
		// Optional lists module name globs that may be missing.
		Optional []string `json:"optional" mapstructure:"optional"`
		// Isolate disables the host require fallback.
		Isolate bool `json:"isolate" mapstructure:"isolate"`
		// Metadata emits the metadata header line.
		Metadata bool `json:"metadata" mapstructure:"metadata"`
		// Verify parses the finished bundle before writing it.
		Verify bool `json:"verify" mapstructure:"verify"`
		// Jobs bounds parallel parsing. Zero means one per CPU.
		Jobs int `json:"jobs" mapstructure:"jobs"`
		// Identifiers override the runtime names of the bundle shim.
		Identifiers IdentifiersConfig `json:"identifiers" mapstructure:"identifiers"`
		// Watch configures build --watch.
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// UI configures the user interface.
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// IdentifiersConfig mirrors bundle.Identifiers. Empty fields use defaults.
	IdentifiersConfig struct {
		Register string `json:"register,omitempty" mapstructure:"register"`
		Require  string `json:"require,omitempty" mapstructure:"require"`
		Loaded   string `json:"loaded,omitempty" mapstructure:"loaded"`
		Modules  string `json:"modules,omitempty" mapstructure:"modules"`
		Aliases  string `json:"aliases,omitempty" mapstructure:"aliases"`
	}

	// WatchConfig configures watch mode.
	WatchConfig struct {
		// Debounce is the quiet period before a rebuild.
		Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
		// Ignore lists extra doublestar globs whose changes never trigger a rebuild.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// ColorScheme sets the color scheme
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		// Verbose enables debug logging
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Paths:            []string{},
		Templates:        append([]string(nil), resolve.DefaultTemplates...),
		Separator:        resolve.DefaultSeparator,
		RootModuleName:   graph.DefaultRootModuleName,
		LuaVersion:       luasyntax.DefaultVersion,
		OnDynamicRequire: graph.DynamicWarn,
		OnMissingModule:  resolve.MissingError,
		Ignore:           []string{},
		Optional:         []string{},
		Watch: WatchConfig{
			Debounce: DefaultDebounce,
			Ignore:   []string{},
		},
		UI: UIConfig{
			ColorScheme: ColorSchemeAuto,
		},
	}
}

// BundleOptions converts the configuration into bundler options.
func (c *Config) BundleOptions() bundle.Options {
	return bundle.Options{
		Paths:            c.Paths,
		Templates:        c.Templates,
		Separator:        c.Separator,
		RootModuleName:   c.RootModuleName,
		LuaVersion:       c.LuaVersion,
		OnDynamicRequire: c.OnDynamicRequire,
		OnMissingModule:  c.OnMissingModule,
		Ignore:           resolve.Patterns(c.Ignore),
		Optional:         resolve.Patterns(c.Optional),
		Isolate:          c.Isolate,
		Metadata:         c.Metadata,
		Jobs:             c.Jobs,
		Identifiers: bundle.Identifiers{
			Register: c.Identifiers.Register,
			Require:  c.Identifiers.Require,
			Loaded:   c.Identifiers.Loaded,
			Modules:  c.Identifiers.Modules,
			Aliases:  c.Identifiers.Aliases,
		},
	}
}

// resolvePaths makes relative file and search paths absolute against dir,
// the directory of the config file they were read from.
func (c *Config) resolvePaths(dir string) {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(dir, p)
	}
	c.Entry = abs(c.Entry)
	c.Output = abs(c.Output)
	c.SourceMap = abs(c.SourceMap)
	for i, p := range c.Paths {
		c.Paths[i] = abs(p)
	}
}

// IsValid returns whether the Config has valid fields. It delegates to the
// typed enums, the module name globs and the runtime identifiers.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.LuaVersion.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.OnDynamicRequire.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.OnMissingModule.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if err := resolve.Patterns(c.Ignore).Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := resolve.Patterns(c.Optional).Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.BundleOptions().Identifiers.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Jobs < 0 {
		errs = append(errs, fmt.Errorf("%w: %d must not be negative", ErrInvalidJobs, c.Jobs))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	return fmt.Sprintf("invalid config: %d field error(s): %v", len(e.FieldErrors), errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig and the field errors for errors.Is()
// compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns the sentinel error for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error {
	return ErrInvalidColorScheme
}

// String returns the string representation of the ColorScheme.
func (cs ColorScheme) String() string { return string(cs) }

// IsValid returns whether the ColorScheme is one of the defined color schemes,
// and a list of validation errors if it is not.
func (cs ColorScheme) IsValid() (bool, []error) {
	switch cs {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: cs}}
	}
}
