// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/luabundle/luabundle/internal/config"
	"github.com/luabundle/luabundle/internal/graph"
	"github.com/luabundle/luabundle/internal/issue"
	"github.com/luabundle/luabundle/internal/resolve"
	"github.com/luabundle/luabundle/pkg/bundle"
	"github.com/luabundle/luabundle/pkg/luasyntax"
)

// withIssue links err to an issue page. An ActionableError without a page
// gets one; anything else is wrapped with operation context.
func withIssue(err error, operation string, id issue.Id) error {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		if ae.Issue == 0 {
			ae.Issue = id
		}
		return err
	}
	return issue.NewErrorContext().
		WithOperation(operation).
		WithIssue(id).
		Wrap(err).
		BuildError()
}

// withUsage wraps a command-line mistake.
func withUsage(err error, operation string) error {
	return issue.NewErrorContext().
		WithOperation(operation).
		WithSuggestion("See 'luabundle help' for the accepted flags and values").
		Wrap(err).
		BuildError()
}

// classifyBuildError maps a bundling failure to an ActionableError with
// suggestions and the matching issue page.
func classifyBuildError(err error) error {
	if errors.Is(err, context.Canceled) {
		return issue.WrapWithOperation(err, "build bundle")
	}

	ctx := issue.NewErrorContext().Wrap(err)
	var (
		be  *graph.BuildError
		nf  *resolve.NotFoundError
		dyn *graph.DynamicRequireError
	)
	switch {
	case errors.As(err, &nf) && nf.From == "" && errors.As(err, &be) && len(be.Chain) == 1:
		ctx.WithOperation("open entry file").
			WithResource(nf.Name).
			WithIssue(issue.EntryNotFoundId).
			WithSuggestion("Check the path, or set 'entry' in " + config.ProjectFileName)
		// The resource already names the entry; the BuildError would repeat it.
		ctx.Wrap(fs.ErrNotExist)
	case errors.As(err, &nf):
		ctx.WithOperation("resolve module").
			WithIssue(issue.ModuleNotFoundId).
			WithSuggestions(
				"Add the directory holding it with --path",
				fmt.Sprintf("Leave it to the host require with --ignore %q", nf.Name),
				"Accept missing modules with --on-missing warn",
			)
	case errors.Is(err, luasyntax.ErrSyntax):
		ctx.WithOperation("parse module").
			WithIssue(issue.ParseErrorId).
			WithSuggestion("Select the dialect with --lua-version (5.1, 5.2, 5.3, 5.4, luajit)")
	case errors.As(err, &dyn):
		ctx.WithOperation("bundle").
			WithIssue(issue.DynamicRequireId).
			WithSuggestion("Use a string literal, or allow dynamic requires with --on-dynamic warn")
	case errors.Is(err, graph.ErrModuleCollision):
		ctx.WithOperation("register module").
			WithSuggestion("Pick another entry key with --root-name")
	case errors.Is(err, fs.ErrPermission), errors.As(err, new(*fs.PathError)):
		ctx.WithOperation("read module")
	default:
		ctx.WithOperation("build bundle")
	}
	return ctx.BuildError()
}

// renderError writes err to w. Verbose mode adds the error chain and the
// linked issue page.
func renderError(w io.Writer, err error, verbose bool, style string) {
	msg := err.Error()
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		msg = ae.Format(verbose)
	}
	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("Error:"), msg)

	page, ok := issue.IssueOf(err)
	if !ok {
		return
	}
	if !verbose {
		fmt.Fprintln(w, SubtitleStyle.Render("Run with --verbose for help on this error."))
		return
	}
	if rendered, rerr := page.Render(style); rerr == nil {
		fmt.Fprint(w, rendered)
	}
}

// glamourStyle maps the configured color scheme to a glamour style.
func glamourStyle(cfg *config.Config) string {
	if cfg == nil {
		return "auto"
	}
	switch cfg.UI.ColorScheme {
	case config.ColorSchemeDark:
		return "dark"
	case config.ColorSchemeLight:
		return "light"
	default:
		return "auto"
	}
}

// outputError wraps a failure to write a bundle or source map.
func outputError(err error, path string) error {
	return issue.NewErrorContext().
		WithOperation("write output").
		WithResource(path).
		WithIssue(issue.OutputWriteFailedId).
		WithSuggestion("Write to standard output with --stdout").
		Wrap(err).
		BuildError()
}

// malformedError links unbundle failures to their issue page.
func malformedError(err error, path string) error {
	if !errors.Is(err, bundle.ErrMalformedBundle) {
		return issue.WrapWithContext(err, "read bundle", path)
	}
	return issue.NewErrorContext().
		WithOperation("unbundle").
		WithResource(path).
		WithIssue(issue.MalformedBundleId).
		Wrap(err).
		BuildError()
}
