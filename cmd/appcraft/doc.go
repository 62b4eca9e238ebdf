// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for appcraft.
//
// This package implements the Cobra command hierarchy for the appcraft CLI:
// building an AppDir from a recipe, running the runtime analysis on its own,
// inspecting ELF files and managing recipes.
package cmd
