// SPDX-License-Identifier: MPL-2.0

package luasyntax

import (
	"errors"
	"fmt"
)

const (
	// Lua51 is the Lua 5.1 dialect.
	Lua51 Version = "5.1"
	// Lua52 is the Lua 5.2 dialect (adds goto, labels and empty statements).
	Lua52 Version = "5.2"
	// Lua53 is the Lua 5.3 dialect (adds integer division and bitwise operators).
	Lua53 Version = "5.3"
	// Lua54 is the Lua 5.4 dialect (adds <const> and <close> attributes).
	Lua54 Version = "5.4"
	// LuaJIT is the LuaJIT 2.x dialect (Lua 5.1 plus goto, labels and empty
	// statements).
	LuaJIT Version = "luajit"

	// DefaultVersion is used when no Version is configured.
	DefaultVersion = Lua53
)

// ErrInvalidVersion is returned when a Version value is not recognized.
var ErrInvalidVersion = errors.New("invalid lua version")

type (
	// Version selects the Lua dialect accepted by the parser.
	Version string

	// InvalidVersionError is returned when a Version value is not recognized.
	// It wraps ErrInvalidVersion for errors.Is() compatibility.
	InvalidVersionError struct {
		Value Version
	}
)

// Versions returns every supported dialect in release order.
func Versions() []Version {
	return []Version{Lua51, Lua52, Lua53, Lua54, LuaJIT}
}

// IsValid returns whether the Version is one of the supported dialects.
// The zero value is valid and means DefaultVersion.
func (v Version) IsValid() (bool, []error) {
	switch v {
	case "", Lua51, Lua52, Lua53, Lua54, LuaJIT:
		return true, nil
	default:
		return false, []error{&InvalidVersionError{Value: v}}
	}
}

// String returns the dialect name.
func (v Version) String() string {
	if v == "" {
		return string(DefaultVersion)
	}
	return string(v)
}

func (v Version) orDefault() Version {
	if v == "" {
		return DefaultVersion
	}
	return v
}

func (v Version) hasGoto() bool {
	switch v.orDefault() {
	case Lua52, Lua53, Lua54, LuaJIT:
		return true
	default:
		return false
	}
}

// hasEmptyStatement reports whether a lone ';' is a statement. Lua 5.1 only
// allows one ';' after each statement.
func (v Version) hasEmptyStatement() bool {
	return v.hasGoto()
}

func (v Version) hasBitwise() bool {
	switch v.orDefault() {
	case Lua53, Lua54:
		return true
	default:
		return false
	}
}

func (v Version) hasAttribs() bool {
	return v.orDefault() == Lua54
}

// Error implements the error interface for InvalidVersionError.
func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("invalid lua version %q (valid: 5.1, 5.2, 5.3, 5.4, luajit)", e.Value)
}

// Unwrap returns ErrInvalidVersion for errors.Is() compatibility.
func (e *InvalidVersionError) Unwrap() error { return ErrInvalidVersion }
