// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable errors for the appcraft CLI.
//
// An ActionableError names the build stage that failed, the path or driver it
// failed on, and a list of remediation hints that the CLI prints under the
// error message.
//
// Issues are longer markdown troubleshooting guides, one per failure class,
// rendered with glamour below the error.
package issue
