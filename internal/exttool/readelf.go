// SPDX-License-Identifier: MPL-2.0

package exttool

import (
	"bytes"
	"context"
)

// Readelf lists ELF symbols via the readelf tool.
type Readelf struct {
	// Path is the readelf executable.
	Path string
	// Runner executes the command.
	Runner Runner
}

// HasSymbol reports whether the symbol table of path mentions symbol. A
// non-zero exit (not an ELF file, unreadable) means false, not an error.
func (r *Readelf) HasSymbol(ctx context.Context, path, symbol string) (bool, error) {
	name := r.Path
	if name == "" {
		name = ReadelfName
	}
	out, err := r.Runner.Run(ctx, Command{Name: name, Args: []string{"-s", path}})
	if err != nil {
		return false, err
	}
	if !out.ExitCode.IsSuccess() {
		return false, nil
	}
	return bytes.Contains(out.Stdout, []byte(symbol)), nil
}
