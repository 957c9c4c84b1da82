// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/pkg/bundle"
)

func newUnbundleCommand(app *App) *cobra.Command {
	var outDir string
	var list bool
	cmd := &cobra.Command{
		Use:   "unbundle <bundle>",
		Short: "Recover module sources from a bundle",
		Long: `Recover module sources from a bundle.

Reads the line-mapping comments that precede every module and writes each
module back to its original relative path under the output directory.`,
		Example: `  luabundle unbundle dist/app.lua -o recovered
  luabundle unbundle dist/app.lua --list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.start(cmd.Context())
			if err != nil {
				return app.failSession(nil, err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return app.failSession(s, malformedError(err, args[0]))
			}
			modules, err := bundle.Unbundle(string(data))
			if err != nil {
				return app.failSession(s, malformedError(err, args[0]))
			}

			if list {
				for _, m := range modules {
					entry := ""
					if m.IsEntry {
						entry = SubtitleStyle.Render("  (entry)")
					}
					fmt.Fprintf(app.stdout, "%s  %s%s\n", ModuleStyle.Render(string(m.ID)), PathStyle.Render(m.Path), entry)
				}
				return nil
			}
			if outDir == "" {
				return app.failSession(s, withUsage(errors.New("no output directory; use -o or --list"), "unbundle"))
			}
			written, err := bundle.WriteModules(outDir, modules)
			if err != nil {
				return app.failSession(s, outputError(err, outDir))
			}
			for _, p := range written {
				s.log.Debug("module written", "path", displayPath(p))
			}
			s.log.Info("bundle unpacked", "modules", len(written), "dir", displayPath(absPath(outDir)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&outDir, "output", "o", "", "directory to write the modules to")
	cmd.Flags().BoolVar(&list, "list", false, "list the modules instead of writing them")
	return cmd
}
