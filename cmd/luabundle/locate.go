// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/luabundle/luabundle/internal/issue"
	"github.com/luabundle/luabundle/pkg/bundle"
)

func newLocateCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <sourcemap> <line>...",
		Short: "Map bundle lines back to the original files",
		Long: `Map bundle lines back to the original files.

Reads a source map written by 'luabundle build --sourcemap' and prints the
module, file and line each bundle line came from. Lines in the runtime or
the wrappers print '-'.`,
		Example: `  luabundle locate dist/app.map.toml 118`,
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.start(cmd.Context())
			if err != nil {
				return app.failSession(nil, err)
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return app.failSession(s, issue.WrapWithContext(err, "read source map", args[0]))
			}
			sm, err := bundle.ParseSourceMap(data)
			if err != nil {
				return app.failSession(s, issue.WrapWithContext(err, "parse source map", args[0]))
			}

			for _, arg := range args[1:] {
				line, err := strconv.Atoi(arg)
				if err != nil || line < 1 {
					return app.failSession(s, withUsage(fmt.Errorf("invalid line %q", arg), "locate line"))
				}
				loc, ok := sm.Locate(line)
				if !ok {
					fmt.Fprintf(app.stdout, "%d\t-\n", line)
					continue
				}
				fmt.Fprintf(app.stdout, "%d\t%s\t%s\n", line, loc, ModuleStyle.Render(loc.Module))
			}
			return nil
		},
	}
}
