// SPDX-License-Identifier: MPL-2.0

// Package elfutil classifies files on disk: ELF magic detection, target
// architecture, shared-object metadata and runnable-executable detection.
//
// Everything in this package is stateless except Inspector, which memoizes
// parsed ELF metadata per file so drivers that look at the same library
// many times during a build only parse it once.
package elfutil
