// SPDX-License-Identifier: MPL-2.0

// Package exttool wraps the external programs appcraft delegates to: strace
// for runtime tracing, patchelf for interpreter and RPATH handling, and
// readelf for symbol listing.
//
// Every tool runs through the Runner interface so tests can substitute canned
// output instead of spawning processes.
package exttool
