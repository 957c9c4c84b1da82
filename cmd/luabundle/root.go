// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the luabundle command tree bound to app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &buildFlags{}
	rootCmd := &cobra.Command{
		Use:   "luabundle [entry]",
		Short: "Bundle a Lua program and its modules into a single file",
		Long: TitleStyle.Render("luabundle") + SubtitleStyle.Render(" - Bundle a Lua program and its modules into a single file") + `

luabundle follows every require call with a string literal argument from an
entry file, wraps each module it finds in a function and writes one Lua file
that registers them and replaces require with a loader for the bundled
modules. Given an entry and no subcommand it behaves like 'build'.

` + SubtitleStyle.Render("Quick Start:") + `
  1. luabundle build src/main.lua -o dist/app.lua
  2. lua dist/app.lua

` + SubtitleStyle.Render("Examples:") + `
  luabundle main.lua -o app.lua      Bundle main.lua into app.lua
  luabundle graph main.lua           Show what main.lua requires
  luabundle run main.lua -- a b      Bundle and run in the embedded VM
  luabundle config init --project    Create ` + config.ProjectFileName,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return cmd.Help()
			}
			return runBuild(cmd, app, flags, args)
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&app.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&app.configPath, "config", "", "config file (default: "+config.ProjectFileName+", then the user config)")
	flags.register(rootCmd.Flags())

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	rootCmd.AddCommand(
		newBuildCommand(app),
		newGraphCommand(app),
		newUnbundleCommand(app),
		newLocateCommand(app),
		newRunCommand(app),
		newConfigCommand(app),
	)
	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// handleError prints errors that no command has reported yet. Commands
// report their own failures and return an ExitError without a cause.
func handleError(w io.Writer, styles fang.Styles, err error) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}
	fang.DefaultErrorHandler(w, styles, err)
}

// Execute runs the CLI and exits with the status of the failed command.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(handleError),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}
