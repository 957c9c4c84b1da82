// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"fmt"
	"strings"
)

const (
	// SeverityInfo marks diagnostics kept for visibility only.
	SeverityInfo Severity = "info"
	// SeverityWarning indicates a recoverable build warning.
	SeverityWarning Severity = "warning"
	// SeverityError indicates a diagnostic that fails the build.
	SeverityError Severity = "error"

	// CodeDynamicRequire marks a require call whose argument is not a literal.
	CodeDynamicRequire = "dynamic_require"
	// CodeCycle marks a require cycle between modules.
	CodeCycle = "cycle"
	// CodeMissingOptional marks a module that was not found and left to the
	// host's require at run time.
	CodeMissingOptional = "missing_module"
	// CodeIgnored marks a require skipped because it matches an ignore pattern.
	CodeIgnored = "ignored_module"
)

type (
	// Severity represents diagnostic severity.
	Severity string

	// Diagnostic is a structured build diagnostic returned to callers (rather
	// than printed) so the CLI decides how to surface it.
	Diagnostic struct {
		// Severity is the diagnostic level.
		Severity Severity
		// Code is a machine-readable identifier (e.g., "dynamic_require").
		Code string
		// Module is the module the diagnostic was found in.
		Module ModuleID
		// Path is the file path of Module.
		Path string
		// Line and Column locate the require call (1-based; zero when the
		// diagnostic has no position, as for cycles).
		Line   int
		Column int
		// Message is the human-readable description.
		Message string
		// Cycle is the closed module path for CodeCycle diagnostics.
		Cycle []ModuleID
		// Cause is the underlying error (optional, for programmatic inspection).
		Cause error
	}
)

// String renders the diagnostic as "path:line:column: severity: message".
func (d Diagnostic) String() string {
	var sb strings.Builder
	if d.Path != "" {
		sb.WriteString(d.Path)
		if d.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", d.Line, d.Column)
		}
		sb.WriteString(": ")
	}
	fmt.Fprintf(&sb, "%s: %s", d.Severity, d.Message)
	return sb.String()
}

// FormatCycle joins a module cycle with arrows.
func FormatCycle(cycle []ModuleID) string {
	parts := make([]string, len(cycle))
	for i, id := range cycle {
		parts[i] = string(id)
	}
	return strings.Join(parts, " -> ")
}

// CountBySeverity returns how many diagnostics have severity s.
func CountBySeverity(diags []Diagnostic, s Severity) int {
	n := 0
	for _, d := range diags {
		if d.Severity == s {
			n++
		}
	}
	return n
}
