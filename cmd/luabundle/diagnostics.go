// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/luabundle/luabundle/internal/graph"
)

// renderDiagnostics prints build diagnostics as "path:line:col: severity:
// message". Info diagnostics are shown only when verbose.
func renderDiagnostics(w io.Writer, diags []graph.Diagnostic, verbose bool) {
	for _, d := range diags {
		if d.Severity == graph.SeverityInfo && !verbose {
			continue
		}
		fmt.Fprintln(w, formatDiagnostic(d))
	}
}

func formatDiagnostic(d graph.Diagnostic) string {
	var sb strings.Builder
	if d.Path != "" {
		loc := displayPath(d.Path)
		if d.Line > 0 {
			loc = fmt.Sprintf("%s:%d:%d", loc, d.Line, d.Column)
		}
		sb.WriteString(PathStyle.Render(loc))
		sb.WriteString(": ")
	}
	sev := string(d.Severity)
	if style, ok := severityStyles[sev]; ok {
		sev = style.Render(sev)
	}
	sb.WriteString(sev)
	sb.WriteString(": ")
	sb.WriteString(d.Message)
	return sb.String()
}

// displayPath shortens p to a path relative to the working directory when
// it lies below it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || !filepath.IsLocal(rel) {
		return p
	}
	return filepath.ToSlash(rel)
}
