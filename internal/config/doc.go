// SPDX-License-Identifier: MPL-2.0

// Package config loads build recipes using Viper with CUE as the file format.
//
// A recipe (appcraft.cue by default) is validated against the embedded
// #Recipe schema in recipe_schema.cue, decoded, and merged over the
// defaults. APPCRAFT_-prefixed environment variables override any field,
// with dots replaced by underscores (APPCRAFT_APPDIR_PATH).
package config
