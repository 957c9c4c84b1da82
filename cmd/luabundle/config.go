// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/internal/config"
	"github.com/luabundle/luabundle/internal/issue"
)

// newConfigCommand creates the `luabundle config` command tree.
func newConfigCommand(app *App) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage luabundle configuration",
		Long: `Manage luabundle configuration.

The first file found is used:
  1. the file named with --config
  2. ` + config.ProjectFileName + ` in the working directory
  3. the user file:
     - Linux: ~/.config/luabundle/config.cue
     - macOS: ~/Library/Application Support/luabundle/config.cue
     - Windows: %APPDATA%\luabundle\config.cue

Relative paths in a config file are resolved against its directory.
LUABUNDLE_* environment variables override single values.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.start(cmd.Context())
			if err != nil {
				return app.failSession(nil, err)
			}
			showConfig(app.stdout, s)
			return nil
		},
	})

	var (
		force   bool
		project bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create a configuration file with the defaults",
		Long: `Create a configuration file with the defaults.

Writes the user config file, or ` + config.ProjectFileName + ` in the working
directory with --project. An existing file is kept unless --force is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.ProjectFileName
			if !project {
				p, err := config.UserConfigPath()
				if err != nil {
					return app.fail(issue.WrapWithOperation(err, "locate config directory"), app.verbose, "auto")
				}
				path = p
			}
			if err := config.WriteFile(path, config.DefaultConfig(), force); err != nil {
				ctx := issue.NewErrorContext().
					WithOperation("create config").
					WithResource(path)
				if errors.Is(err, config.ErrConfigExists) {
					ctx.WithSuggestion("Overwrite it with --force")
				}
				return app.fail(ctx.Wrap(err).BuildError(), app.verbose, "auto")
			}
			fmt.Fprintf(app.stdout, "%s Created configuration at %s\n", SuccessStyle.Render("✓"), displayPath(path))
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&project, "project", false, "write "+config.ProjectFileName+" in the working directory")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show which configuration file is used",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := config.Locate(config.LoadOptions{ConfigFilePath: app.configPath})
			if err != nil {
				return app.fail(issue.WrapWithOperation(err, "locate config"), app.verbose, "auto")
			}
			if path == "" {
				fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("(none, using defaults)"))
			} else {
				fmt.Fprintf(app.stdout, "%s (%s)\n", displayPath(path), source)
			}
			if user, err := config.UserConfigPath(); err == nil {
				fmt.Fprintf(app.stdout, "User config file: %s\n", user)
			}
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.start(cmd.Context())
			if err != nil {
				return app.failSession(nil, err)
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(s.cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(w io.Writer, s *session) {
	cfg := s.cfg
	key := func(k string) string { return ModuleStyle.Render(k) }
	val := func(v any) string { return SuccessStyle.Render(fmt.Sprint(v)) }
	list := func(vs []string) string {
		if len(vs) == 0 {
			return SubtitleStyle.Render("(none)")
		}
		return val(strings.Join(vs, ", "))
	}
	str := func(v string) string {
		if v == "" {
			return SubtitleStyle.Render("(not set)")
		}
		return val(v)
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if s.cfgPath == "" {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), SubtitleStyle.Render("(using defaults)"))
	} else {
		fmt.Fprintf(w, "%s: %s\n", key("Config file"), s.cfgPath)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "%s: %s\n", key("entry"), str(cfg.Entry))
	fmt.Fprintf(w, "%s: %s\n", key("output"), str(cfg.Output))
	fmt.Fprintf(w, "%s: %s\n", key("source_map"), str(cfg.SourceMap))
	fmt.Fprintf(w, "%s: %s\n", key("paths"), list(cfg.Paths))
	fmt.Fprintf(w, "%s: %s\n", key("templates"), list(cfg.Templates))
	fmt.Fprintf(w, "%s: %s\n", key("separator"), val(fmt.Sprintf("%q", cfg.Separator)))
	fmt.Fprintf(w, "%s: %s\n", key("root_module_name"), val(cfg.RootModuleName))
	fmt.Fprintf(w, "%s: %s\n", key("lua_version"), val(cfg.LuaVersion))
	fmt.Fprintf(w, "%s: %s\n", key("on_dynamic_require"), val(cfg.OnDynamicRequire))
	fmt.Fprintf(w, "%s: %s\n", key("on_missing_module"), val(cfg.OnMissingModule))
	fmt.Fprintf(w, "%s: %s\n", key("ignore"), list(cfg.Ignore))
	fmt.Fprintf(w, "%s: %s\n", key("optional"), list(cfg.Optional))
	fmt.Fprintf(w, "%s: %s\n", key("isolate"), val(cfg.Isolate))
	fmt.Fprintf(w, "%s: %s\n", key("metadata"), val(cfg.Metadata))
	fmt.Fprintf(w, "%s: %s\n", key("verify"), val(cfg.Verify))
	fmt.Fprintf(w, "%s: %s\n", key("jobs"), val(cfg.Jobs))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("watch"))
	fmt.Fprintf(w, "  debounce: %s\n", val(cfg.Watch.Debounce))
	fmt.Fprintf(w, "  ignore: %s\n", list(cfg.Watch.Ignore))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", key("ui"))
	fmt.Fprintf(w, "  color_scheme: %s\n", val(cfg.UI.ColorScheme))
	fmt.Fprintf(w, "  verbose: %s\n", val(cfg.UI.Verbose))
}
