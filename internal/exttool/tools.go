// SPDX-License-Identifier: MPL-2.0

package exttool

import (
	"errors"
	"fmt"
	"os/exec"
)

const (
	// StraceName is the syscall tracer executable.
	StraceName = "strace"
	// PatchElfName is the ELF patching executable.
	PatchElfName = "patchelf"
	// ReadelfName is the ELF symbol listing executable.
	ReadelfName = "readelf"
)

// ErrToolNotFound is the sentinel error wrapped by ToolNotFoundError.
var ErrToolNotFound = errors.New("required tool not found")

// ToolNotFoundError is returned when a required executable is not on PATH.
type ToolNotFoundError struct {
	Name string
	Err  error
}

// Error implements the error interface.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("required tool %q not found in PATH", e.Name)
}

// Unwrap returns ErrToolNotFound for errors.Is.
func (e *ToolNotFoundError) Unwrap() error { return ErrToolNotFound }

// LookPathFunc resolves an executable name to a path.
type LookPathFunc func(name string) (string, error)

// Resolve looks up every named tool and returns name -> absolute path. The
// first missing tool aborts with a *ToolNotFoundError.
func Resolve(lookPath LookPathFunc, names ...string) (map[string]string, error) {
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	paths := make(map[string]string, len(names))
	for _, name := range names {
		p, err := lookPath(name)
		if err != nil {
			return nil, &ToolNotFoundError{Name: name, Err: err}
		}
		paths[name] = p
	}
	return paths, nil
}
