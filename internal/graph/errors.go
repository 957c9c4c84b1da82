// SPDX-License-Identifier: MPL-2.0

package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/luabundle/luabundle/pkg/luasyntax"
)

var (
	// ErrDynamicRequire is returned when dynamic requires are promoted to errors.
	ErrDynamicRequire = errors.New("dynamic require")

	// ErrModuleCollision is returned when a require string equal to the root
	// module name resolves to a file other than the entry.
	ErrModuleCollision = errors.New("module name collides with the root module")

	// ErrInvalidDynamicPolicy is returned when a DynamicPolicy value is not recognized.
	ErrInvalidDynamicPolicy = errors.New("invalid dynamic-require policy")
)

type (
	// BuildError is the terminal failure of a build. It names the failing
	// module, where the failure was found, and the chain of modules that led
	// there from the entry.
	BuildError struct {
		// Module is the module that could not be loaded.
		Module ModuleID
		// Path is the file the failure is located in: the module's own file
		// for read and syntax errors, the requiring file for resolution errors.
		Path string
		// Pos is the location of the failure in Path (zero if unknown).
		Pos luasyntax.Pos
		// Chain lists module IDs from the entry to Module, inclusive.
		Chain []ModuleID
		// Err is the underlying error (*resolve.NotFoundError,
		// *luasyntax.SyntaxError, a read error, ...).
		Err error
	}

	// DynamicRequireError lists every dynamic require when the policy is
	// DynamicError. It wraps ErrDynamicRequire for errors.Is() compatibility.
	DynamicRequireError struct {
		Requires []Diagnostic
	}

	// InvalidDynamicPolicyError is returned when a DynamicPolicy value is not recognized.
	// It wraps ErrInvalidDynamicPolicy for errors.Is() compatibility.
	InvalidDynamicPolicyError struct {
		Value DynamicPolicy
	}
)

// Error implements the error interface for BuildError.
func (e *BuildError) Error() string {
	var sb strings.Builder
	sb.WriteString("bundle ")
	sb.WriteString(FormatCycle(e.Chain))
	if e.Path != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Path)
		if e.Pos.Line > 0 {
			fmt.Fprintf(&sb, ":%d:%d", e.Pos.Line, e.Pos.Column)
		}
		sb.WriteString(")")
	}
	sb.WriteString(": ")
	sb.WriteString(e.Err.Error())
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *BuildError) Unwrap() error { return e.Err }

// Error implements the error interface for DynamicRequireError.
func (e *DynamicRequireError) Error() string {
	if len(e.Requires) == 1 {
		return fmt.Sprintf("dynamic require: %s", e.Requires[0].Message)
	}
	return fmt.Sprintf("%d dynamic requires found (first: %s)", len(e.Requires), e.Requires[0].Message)
}

// Unwrap returns ErrDynamicRequire for errors.Is() compatibility.
func (e *DynamicRequireError) Unwrap() error { return ErrDynamicRequire }

// Error implements the error interface for InvalidDynamicPolicyError.
func (e *InvalidDynamicPolicyError) Error() string {
	return fmt.Sprintf("invalid dynamic-require policy %q (valid: warn, error, ignore)", e.Value)
}

// Unwrap returns ErrInvalidDynamicPolicy for errors.Is() compatibility.
func (e *InvalidDynamicPolicyError) Unwrap() error { return ErrInvalidDynamicPolicy }
