// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the luabundle command-line interface.
//
// The commands are thin: they load configuration, apply flag overrides and
// call into pkg/bundle and internal/graph. Errors reach the user as
// issue.ActionableError values rendered to stderr.
package cmd
