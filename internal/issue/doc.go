// SPDX-License-Identifier: MPL-2.0

// Package issue holds user-facing errors and the Markdown issue pages that
// explain them.
//
// ActionableError carries the failed operation, the file or module involved
// and short suggestions. When it links an issue page, the CLI renders that
// page with glamour below the error.
package issue
