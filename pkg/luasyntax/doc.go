// SPDX-License-Identifier: MPL-2.0

// Package luasyntax parses Lua source text into a syntax tree and classifies
// the require calls it contains.
//
// The parser accepts the grammar of Lua 5.1 through 5.4 and LuaJIT. Syntax that
// only exists in newer dialects (goto and labels, integer division, bitwise
// operators, variable attributes) is enabled by the selected Version.
//
// Require classification is a separate pass over call expressions (Classify):
// a call to the require identifier whose sole argument is a string literal, or a
// concatenation of string literals, is a Literal require with a known module
// name. Every other argument form is a Dynamic require that cannot be resolved
// before run time and is reported with its position.
//
// File organization:
//   - token.go: token kinds and positions
//   - lexer.go: scanner for names, numerals, strings and comments
//   - ast.go: syntax tree nodes and Inspect
//   - parser.go: recursive-descent parser
//   - require.go: require call classification
//   - quote.go: Lua string literal quoting and decoding
//   - version.go: dialect selection
package luasyntax
