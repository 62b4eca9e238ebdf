// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helper functions for tests that handle errors
// appropriately, reducing boilerplate and ensuring consistent error handling.
//
// Besides environment and filesystem helpers (MustSetenv, MustChdir,
// MustWriteFile) it builds ELF fixtures: minimal headers with a chosen
// machine byte, and a lookup for a real dynamically linked host binary.
package testutil
