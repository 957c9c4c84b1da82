// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/luabundle/luabundle/internal/config"
	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/internal/issue"
	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/bundle"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

type (
	// bundleFlags are the flags shared by every command that bundles.
	// Only flags set on the command line override the configuration.
	bundleFlags struct {
		paths      []string
		templates  []string
		separator  string
		rootName   string
		luaVersion string
		onDynamic  string
		onMissing  string
		ignore     []string
		optional   []string
		isolate    bool
		jobs       int
	}

	// buildFlags add the output handling of the build command.
	buildFlags struct {
		bundleFlags
		output    string
		sourceMap string
		metadata  bool
		verify    bool
		stdout    bool
		watch     bool
	}
)

func (f *bundleFlags) register(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.paths, "path", "p", nil, "module search root (repeatable; default: the entry's directory)")
	fs.StringSliceVar(&f.templates, "template", nil, "path template with '?' for the module path (repeatable)")
	fs.StringVar(&f.separator, "separator", "", "replacement for '.' in module names")
	fs.StringVar(&f.rootName, "root-name", "", "registry key of the entry module")
	fs.StringVar(&f.luaVersion, "lua-version", "", "accepted syntax: "+versionList())
	fs.StringVar(&f.onDynamic, "on-dynamic", "", "non-literal require policy: warn, error, ignore")
	fs.StringVar(&f.onMissing, "on-missing", "", "unresolved module policy: error, warn")
	fs.StringSliceVar(&f.ignore, "ignore", nil, "module name glob left to the host require (repeatable)")
	fs.StringSliceVar(&f.optional, "optional", nil, "module name glob that may be missing (repeatable)")
	fs.BoolVar(&f.isolate, "isolate", false, "never fall back to the host require")
	fs.IntVarP(&f.jobs, "jobs", "j", 0, "parallel parse jobs (0: one per CPU)")
}

func (f *buildFlags) register(fs *pflag.FlagSet) {
	f.bundleFlags.register(fs)
	fs.StringVarP(&f.output, "output", "o", "", "bundle file to write")
	fs.StringVar(&f.sourceMap, "sourcemap", "", "write a TOML source map to this file")
	fs.BoolVar(&f.metadata, "metadata", false, "emit the metadata header line")
	fs.BoolVar(&f.verify, "verify", false, "parse the finished bundle before writing it")
	fs.BoolVar(&f.stdout, "stdout", false, "write the bundle to standard output")
	fs.BoolVarP(&f.watch, "watch", "w", false, "rebuild when sources change")
}

// apply overrides cfg with every flag set on the command line. Relative
// paths are taken against the working directory.
func (f *bundleFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("path") {
		cfg.Paths = absAll(f.paths)
	}
	if fs.Changed("template") {
		cfg.Templates = f.templates
	}
	if fs.Changed("separator") {
		cfg.Separator = f.separator
	}
	if fs.Changed("root-name") {
		cfg.RootModuleName = f.rootName
	}
	if fs.Changed("lua-version") {
		cfg.LuaVersion = luasyntax.Version(f.luaVersion)
	}
	if fs.Changed("on-dynamic") {
		cfg.OnDynamicRequire = graph.DynamicPolicy(f.onDynamic)
	}
	if fs.Changed("on-missing") {
		cfg.OnMissingModule = resolve.MissingPolicy(f.onMissing)
	}
	if fs.Changed("ignore") {
		cfg.Ignore = f.ignore
	}
	if fs.Changed("optional") {
		cfg.Optional = f.optional
	}
	if fs.Changed("isolate") {
		cfg.Isolate = f.isolate
	}
	if fs.Changed("jobs") {
		cfg.Jobs = f.jobs
	}
	if valid, errs := cfg.IsValid(); !valid {
		return errors.Join(errs...)
	}
	return nil
}

func (f *buildFlags) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	if fs.Changed("output") {
		cfg.Output = absPath(f.output)
	}
	if fs.Changed("sourcemap") {
		cfg.SourceMap = absPath(f.sourceMap)
	}
	if fs.Changed("metadata") {
		cfg.Metadata = f.metadata
	}
	if fs.Changed("verify") {
		cfg.Verify = f.verify
	}
	return f.bundleFlags.apply(fs, cfg)
}

func newBuildCommand(app *App) *cobra.Command {
	flags := &buildFlags{}
	cmd := &cobra.Command{
		Use:   "build [entry]",
		Short: "Bundle a Lua program into a single file",
		Long: `Bundle a Lua program into a single file.

Every module reached from the entry through a literal require is wrapped
and registered in the output; a small runtime replaces require so that each
module runs at most once. Without -o (or 'output' in the config) the bundle
goes to standard output.`,
		Example: `  luabundle build src/main.lua -o dist/app.lua
  luabundle build main.lua -p src -p vendor --ignore 'socket*'
  luabundle build --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, app, flags, args)
		},
	}
	flags.register(cmd.Flags())
	return cmd
}

func runBuild(cmd *cobra.Command, app *App, flags *buildFlags, args []string) error {
	prepare := func(ctx context.Context) (*session, string, error) {
		s, err := app.start(ctx)
		if err != nil {
			return nil, "", err
		}
		if err := flags.apply(cmd.Flags(), s.cfg); err != nil {
			return s, "", withUsage(err, "apply flags")
		}
		entry, err := entryArg(args, s.cfg)
		return s, entry, err
	}

	ctx := cmd.Context()
	s, entry, err := prepare(ctx)
	if err != nil {
		return app.failSession(s, err)
	}

	if flags.watch {
		if flags.stdout || s.cfg.Output == "" {
			return app.failSession(s, withUsage(errors.New("--watch needs an output file"), "start watch mode"))
		}
		return app.failSession(s, runWatch(ctx, app, prepare, s, entry))
	}
	return app.failSession(s, buildOnce(ctx, app, s, entry, flags.stdout))
}

// buildOnce bundles entry and writes the bundle and source map.
func buildOnce(ctx context.Context, app *App, s *session, entry string, toStdout bool) error {
	opts := s.cfg.BundleOptions()
	opts.ToolVersion = Version

	b, diags, err := bundle.BundleFile(ctx, entry, opts)
	renderDiagnostics(app.stderr, diags, s.verbose)
	if err != nil {
		return classifyBuildError(err)
	}
	if s.cfg.Verify {
		if err := b.Verify(s.cfg.LuaVersion); err != nil {
			return issue.WrapWithOperation(err, "verify bundle")
		}
		s.log.Debug("bundle verified", "lua_version", s.cfg.LuaVersion)
	}

	output := s.cfg.Output
	if toStdout || output == "" {
		if _, err := fmt.Fprint(app.stdout, b.Text); err != nil {
			return outputError(err, "stdout")
		}
		output = ""
	} else if err := writeFile(output, []byte(b.Text)); err != nil {
		return outputError(err, output)
	}

	if s.cfg.SourceMap != "" {
		if output != "" {
			b.SourceMap.Bundle = filepath.Base(output)
		}
		data, err := b.SourceMap.Marshal()
		if err != nil {
			return outputError(err, s.cfg.SourceMap)
		}
		if err := writeFile(s.cfg.SourceMap, data); err != nil {
			return outputError(err, s.cfg.SourceMap)
		}
		s.log.Debug("source map written", "path", displayPath(s.cfg.SourceMap))
	}

	if output != "" {
		s.log.Info("bundle created",
			"output", displayPath(output),
			"modules", len(b.Modules),
			"lines", b.SourceMap.Lines,
			"warnings", graph.CountBySeverity(diags, graph.SeverityWarning))
	}
	return nil
}

// entryArg picks the entry from the arguments or the configuration.
func entryArg(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if cfg.Entry != "" {
		return cfg.Entry, nil
	}
	return "", withUsage(errors.New("no entry file given"), "select entry file")
}

// writeFile writes data with mode 0644, creating the parent directory.
func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func absPath(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

func absAll(ps []string) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = absPath(p)
	}
	return out
}

func versionList() string {
	vs := luasyntax.Versions()
	names := make([]string, len(vs))
	for i, v := range vs {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
