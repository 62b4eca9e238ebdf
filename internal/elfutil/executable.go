// SPDX-License-Identifier: MPL-2.0

package elfutil

import "context"

// entrySymbol is referenced by every binary linked against the C runtime.
const entrySymbol = "__libc_start_main"

// SymbolLister reports whether a binary references a named symbol.
type SymbolLister interface {
	HasSymbol(ctx context.Context, path, symbol string) (bool, error)
}

// IsELFExecutable reports whether path looks like a runnable program rather
// than a plain shared object. Lister failures mean "not executable".
func IsELFExecutable(ctx context.Context, lister SymbolLister, path string) bool {
	ok, err := lister.HasSymbol(ctx, path, entrySymbol)
	if err != nil {
		return false
	}
	return ok
}
