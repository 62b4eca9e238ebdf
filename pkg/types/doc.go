// SPDX-License-Identifier: MPL-2.0

// Package types defines small value types shared by appcraft's packages and
// its CLI.
package types
