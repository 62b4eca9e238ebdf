// SPDX-License-Identifier: MPL-2.0

// Package appdir models the bundle being built: the destination directory,
// the set of host paths already copied into it and the AppRun launcher that
// starts the bundled application.
//
// Host paths are mirrored under the root, so /usr/lib/libz.so.1 is deployed
// to <root>/usr/lib/libz.so.1. The bundled set only grows during a build.
package appdir
