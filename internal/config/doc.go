// SPDX-License-Identifier: MPL-2.0

// Package config handles luabundle configuration using Viper with CUE as the
// file format.
//
// The effective file is, in order: the path given with --config, luabundle.cue
// in the working directory, or config.cue in the user config directory
// ($XDG_CONFIG_HOME/luabundle on Linux, ~/Library/Application Support/luabundle
// on macOS, %APPDATA%\luabundle on Windows). Only one file is read. Values are
// validated against the embedded #Config schema (config_schema.cue), merged
// over the built-in defaults, and can be overridden with LUABUNDLE_* environment
// variables. Relative paths in a file are resolved against its directory.
package config
