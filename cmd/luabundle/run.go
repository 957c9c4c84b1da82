// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/internal/issue"
	"github.com/luabundle/luabundle/internal/luarun"
	"github.com/luabundle/luabundle/pkg/bundle"
)

func newRunCommand(app *App) *cobra.Command {
	flags := &bundleFlags{}
	var traceback bool
	cmd := &cobra.Command{
		Use:   "run [entry] [-- args...]",
		Short: "Bundle a program in memory and run it",
		Long: `Bundle a program in memory and run it in the embedded Lua VM.

The VM implements Lua 5.1 with the standard libraries. Error positions are
mapped from the bundle back to the original files. Arguments after '--' are
passed to the program as '...' and in the global 'arg' table.`,
		Example: `  luabundle run src/main.lua -- --name world
  luabundle run -- input.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := app.start(ctx)
			if err != nil {
				return app.failSession(nil, err)
			}
			if err := flags.apply(cmd.Flags(), s.cfg); err != nil {
				return app.failSession(s, withUsage(err, "apply flags"))
			}
			positional, scriptArgs := splitAtDash(args, cmd.ArgsLenAtDash())
			if len(positional) > 1 {
				return app.failSession(s, withUsage(fmt.Errorf("unexpected arguments %q; pass program arguments after --", positional[1:]), "run"))
			}
			entry, err := entryArg(positional, s.cfg)
			if err != nil {
				return app.failSession(s, err)
			}

			opts := s.cfg.BundleOptions()
			opts.ToolVersion = Version
			b, diags, err := bundle.BundleFile(ctx, entry, opts)
			renderDiagnostics(app.stderr, diags, s.verbose)
			if err != nil {
				return app.failSession(s, classifyBuildError(err))
			}

			chunk := luarun.DefaultChunkName
			s.log.Debug("running bundle", "modules", len(b.Modules), "args", len(scriptArgs))
			_, err = luarun.Run(ctx, b.Text, luarun.Options{
				ChunkName: chunk,
				Args:      scriptArgs,
				Stdout:    app.stdout,
			})
			if err != nil {
				rerr := runtimeError(err, b.SourceMap, chunk)
				var re *luarun.RuntimeError
				if traceback && errors.As(rerr, &re) && re.Traceback != "" {
					fmt.Fprintln(app.stderr, PathStyle.Render(re.Traceback))
				}
				return app.failSession(s, rerr)
			}
			return nil
		},
	}
	flags.register(cmd.Flags())
	cmd.Flags().BoolVar(&traceback, "traceback", false, "print the Lua stack traceback on errors")
	return cmd
}

// splitAtDash separates command arguments from program arguments.
func splitAtDash(args []string, dash int) (positional, rest []string) {
	if dash < 0 {
		if len(args) == 0 {
			return nil, nil
		}
		return args[:1], args[1:]
	}
	return args[:dash], args[dash:]
}

// runtimeError maps bundle positions in a Lua error back to the modules.
func runtimeError(err error, sm *bundle.SourceMap, chunk string) error {
	var re *luarun.RuntimeError
	if !errors.As(err, &re) {
		return issue.WrapWithOperation(err, "run bundle")
	}
	mapped := &luarun.RuntimeError{
		Message:   sm.Rewrite(re.Message, chunk),
		Traceback: sm.Rewrite(re.Traceback, chunk),
	}
	return issue.NewErrorContext().
		WithOperation("run bundle").
		WithIssue(issue.BundleRuntimeErrorId).
		Wrap(mapped).
		BuildError()
}
