// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/luabundle/luabundle/internal/issue"
	"github.com/luabundle/luabundle/pkg/cueutil"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "luabundle"
	// ProjectFileName is the per-project config file looked up in the
	// working directory.
	ProjectFileName = "luabundle.cue"
	// ConfigFileName is the name of the user config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides (LUABUNDLE_LUA_VERSION, ...).
	EnvPrefix = "LUABUNDLE"
)

const (
	// SourceDefaults means no config file was found.
	SourceDefaults Source = "defaults"
	// SourceFlag means the file was named with --config.
	SourceFlag Source = "flag"
	// SourceProject means the project file in the working directory.
	SourceProject Source = "project"
	// SourceUser means the file in the user config directory.
	SourceUser Source = "user"
)

// ErrConfigExists is returned by WriteFile when the target exists and
// overwriting was not requested.
var ErrConfigExists = errors.New("config file already exists")

//go:embed config_schema.cue
var configSchema []byte

// Source tells where the effective configuration came from.
type Source string

// ConfigDir returns the luabundle user configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Locate returns the config file Load would read and where it comes from.
// The precedence is --config, then the project file, then the user file.
// An empty path with SourceDefaults means no file applies.
func Locate(opts LoadOptions) (string, Source, error) {
	if opts.ConfigFilePath != "" {
		return opts.ConfigFilePath, SourceFlag, nil
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		projectDir = "."
	}
	if p := filepath.Join(projectDir, ProjectFileName); fileExists(p) {
		return p, SourceProject, nil
	}

	cfgDir, err := configDirWithOverride(opts.ConfigDirPath)
	if err != nil {
		return "", SourceDefaults, err
	}
	if p := filepath.Join(cfgDir, ConfigFileName+"."+ConfigFileExt); fileExists(p) {
		return p, SourceUser, nil
	}
	return "", SourceDefaults, nil
}

// loadWithOptions performs option-driven config loading without mutating
// package-level state.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, source, err := Locate(opts)
	if err != nil {
		return nil, "", err
	}
	if source == SourceFlag && !fileExists(path) {
		return nil, "", issue.NewErrorContext().
			WithOperation("load configuration").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Use 'luabundle config init' to create a project config").
			Wrap(fmt.Errorf("config file not found: %s", path)).
			BuildError()
	}
	if path != "" {
		if err := loadCUEIntoViper(v, path); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Run 'luabundle config dump' to see every supported field").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}
	if path != "" {
		abs, err := filepath.Abs(path)
		if err == nil {
			path = abs
		}
		cfg.resolvePaths(filepath.Dir(path))
	}

	// CUE checks shapes; globs and identifiers need the Go validators.
	if valid, errs := cfg.IsValid(); !valid {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Fix the fields listed above").
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, path, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("entry", d.Entry)
	v.SetDefault("output", d.Output)
	v.SetDefault("source_map", d.SourceMap)
	v.SetDefault("paths", d.Paths)
	v.SetDefault("templates", d.Templates)
	v.SetDefault("separator", d.Separator)
	v.SetDefault("root_module_name", d.RootModuleName)
	v.SetDefault("lua_version", string(d.LuaVersion))
	v.SetDefault("on_dynamic_require", string(d.OnDynamicRequire))
	v.SetDefault("on_missing_module", string(d.OnMissingModule))
	v.SetDefault("ignore", d.Ignore)
	v.SetDefault("optional", d.Optional)
	v.SetDefault("isolate", d.Isolate)
	v.SetDefault("metadata", d.Metadata)
	v.SetDefault("verify", d.Verify)
	v.SetDefault("jobs", d.Jobs)
	v.SetDefault("identifiers.register", d.Identifiers.Register)
	v.SetDefault("identifiers.require", d.Identifiers.Require)
	v.SetDefault("identifiers.loaded", d.Identifiers.Loaded)
	v.SetDefault("identifiers.modules", d.Identifiers.Modules)
	v.SetDefault("identifiers.aliases", d.Identifiers.Aliases)
	v.SetDefault("watch.debounce", d.Watch.Debounce)
	v.SetDefault("watch.ignore", d.Watch.Ignore)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
}

// configDirWithOverride resolves the configuration directory, honoring
// explicit provider options before platform defaults.
func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}

	return ConfigDir()
}

// loadCUEIntoViper validates a CUE file against #Config and merges it into
// viper. Fields are optional, so the document need not be concrete.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	res, err := cueutil.Decode[map[string]any](configSchema, data, "#Config",
		cueutil.WithFilename(path),
		cueutil.WithConcrete(false),
	)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(*res.Value); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// UserConfigPath returns the path of the user config file.
func UserConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt), nil
}

// WriteFile renders cfg as CUE into path, creating parent directories.
// An existing file is only replaced when force is set.
func WriteFile(path string, cfg *Config, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(cfg)), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration. Empty
// optional fields are left out so the output validates against #Config.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// luabundle configuration\n")
	sb.WriteString("// Relative paths are resolved against this file's directory.\n\n")

	writeString := func(indent, key, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%s%s: %q\n", indent, key, value)
		}
	}
	writeList := func(indent, key string, values []string) {
		if len(values) == 0 {
			return
		}
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&sb, "%s%s: [%s]\n", indent, key, strings.Join(quoted, ", "))
	}

	writeString("", "entry", cfg.Entry)
	writeString("", "output", cfg.Output)
	writeString("", "source_map", cfg.SourceMap)
	writeList("", "paths", cfg.Paths)
	writeList("", "templates", cfg.Templates)
	fmt.Fprintf(&sb, "separator: %q\n", cfg.Separator)
	writeString("", "root_module_name", cfg.RootModuleName)
	writeString("", "lua_version", string(cfg.LuaVersion))
	writeString("", "on_dynamic_require", string(cfg.OnDynamicRequire))
	writeString("", "on_missing_module", string(cfg.OnMissingModule))
	writeList("", "ignore", cfg.Ignore)
	writeList("", "optional", cfg.Optional)
	fmt.Fprintf(&sb, "isolate: %v\n", cfg.Isolate)
	fmt.Fprintf(&sb, "metadata: %v\n", cfg.Metadata)
	fmt.Fprintf(&sb, "verify: %v\n", cfg.Verify)
	fmt.Fprintf(&sb, "jobs: %d\n", cfg.Jobs)

	ids := cfg.Identifiers
	if ids != (IdentifiersConfig{}) {
		sb.WriteString("\nidentifiers: {\n")
		writeString("\t", "register", ids.Register)
		writeString("\t", "require", ids.Require)
		writeString("\t", "loaded", ids.Loaded)
		writeString("\t", "modules", ids.Modules)
		writeString("\t", "aliases", ids.Aliases)
		sb.WriteString("}\n")
	}

	sb.WriteString("\nwatch: {\n")
	if cfg.Watch.Debounce > 0 {
		fmt.Fprintf(&sb, "\tdebounce: %q\n", cfg.Watch.Debounce.String())
	}
	writeList("\t", "ignore", cfg.Watch.Ignore)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	writeString("\t", "color_scheme", string(cfg.UI.ColorScheme))
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}
