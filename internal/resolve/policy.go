// SPDX-License-Identifier: MPL-2.0

package resolve

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	// MissingError aborts the build when a transitive module is not found.
	MissingError MissingPolicy = "error"
	// MissingWarn reports the miss and leaves the require to the host at run time.
	MissingWarn MissingPolicy = "warn"
)

var (
	// ErrInvalidMissingPolicy is returned when a MissingPolicy value is not recognized.
	ErrInvalidMissingPolicy = errors.New("invalid missing-module policy")

	// ErrInvalidPattern is returned when a module name glob does not compile.
	ErrInvalidPattern = errors.New("invalid module pattern")
)

type (
	// MissingPolicy decides what happens when a non-entry module is not found.
	MissingPolicy string

	// InvalidMissingPolicyError is returned when a MissingPolicy value is not recognized.
	// It wraps ErrInvalidMissingPolicy for errors.Is() compatibility.
	InvalidMissingPolicyError struct {
		Value MissingPolicy
	}

	// Patterns is a list of doublestar globs matched against module names,
	// e.g. "vendor.*" or "socket*".
	Patterns []string

	// InvalidPatternError reports a glob that doublestar rejects.
	InvalidPatternError struct {
		Pattern string
	}
)

// IsValid returns whether the MissingPolicy is one of the defined values.
// The zero value is valid and means MissingError.
func (p MissingPolicy) IsValid() (bool, []error) {
	switch p {
	case "", MissingError, MissingWarn:
		return true, nil
	default:
		return false, []error{&InvalidMissingPolicyError{Value: p}}
	}
}

// String returns the policy name.
func (p MissingPolicy) String() string {
	if p == "" {
		return string(MissingError)
	}
	return string(p)
}

// Validate checks that every pattern compiles.
func (ps Patterns) Validate() error {
	var errs []error
	for _, p := range ps {
		if !doublestar.ValidatePattern(p) {
			errs = append(errs, &InvalidPatternError{Pattern: p})
		}
	}
	return errors.Join(errs...)
}

// Match reports whether name matches any pattern. Invalid patterns never match.
func (ps Patterns) Match(name string) bool {
	for _, p := range ps {
		if ok, err := doublestar.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Error implements the error interface for InvalidMissingPolicyError.
func (e *InvalidMissingPolicyError) Error() string {
	return fmt.Sprintf("invalid missing-module policy %q (valid: error, warn)", e.Value)
}

// Unwrap returns ErrInvalidMissingPolicy for errors.Is() compatibility.
func (e *InvalidMissingPolicyError) Unwrap() error { return ErrInvalidMissingPolicy }

// Error implements the error interface for InvalidPatternError.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid module pattern %q", e.Pattern)
}

// Unwrap returns ErrInvalidPattern for errors.Is() compatibility.
func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }
