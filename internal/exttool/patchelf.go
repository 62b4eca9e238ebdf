// SPDX-License-Identifier: MPL-2.0

package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoInterpreter means the binary declares no program interpreter,
	// which is normal for static executables and shared objects.
	ErrNoInterpreter = errors.New("no program interpreter")
	// ErrToolFailed means the tool could not be run or rejected the input.
	ErrToolFailed = errors.New("tool invocation failed")
)

// InterpreterError reports why a binary's interpreter could not be read.
// Err is ErrNoInterpreter or wraps ErrToolFailed.
type InterpreterError struct {
	Path string
	Err  error
}

// Error implements the error interface.
func (e *InterpreterError) Error() string {
	return fmt.Sprintf("read interpreter of %s: %v", e.Path, e.Err)
}

// Unwrap returns the classified cause.
func (e *InterpreterError) Unwrap() error { return e.Err }

// PatchElf reads and rewrites ELF loader metadata via the patchelf tool.
type PatchElf struct {
	// Path is the patchelf executable.
	Path string
	// Runner executes the command.
	Runner Runner
}

func (p *PatchElf) bin() string {
	if p.Path == "" {
		return PatchElfName
	}
	return p.Path
}

// Interpreter returns the dynamic loader path requested by the binary.
func (p *PatchElf) Interpreter(ctx context.Context, path string) (string, error) {
	out, err := p.Runner.Run(ctx, Command{Name: p.bin(), Args: []string{"--print-interpreter", path}})
	if err != nil {
		return "", &InterpreterError{Path: path, Err: fmt.Errorf("%w: %w", ErrToolFailed, err)}
	}
	if !out.ExitCode.IsSuccess() {
		if bytes.Contains(out.Stderr, []byte(".interp")) {
			return "", &InterpreterError{Path: path, Err: ErrNoInterpreter}
		}
		return "", &InterpreterError{
			Path: path,
			Err:  fmt.Errorf("%w: exit status %s: %s", ErrToolFailed, out.ExitCode, strings.TrimSpace(string(out.Stderr))),
		}
	}

	interp := strings.TrimSpace(string(out.Stdout))
	if interp == "" {
		return "", &InterpreterError{Path: path, Err: ErrNoInterpreter}
	}
	return interp, nil
}

// SetRPath replaces the RUNPATH of the binary at path.
func (p *PatchElf) SetRPath(ctx context.Context, path, rpath string) error {
	out, err := p.Runner.Run(ctx, Command{Name: p.bin(), Args: []string{"--set-rpath", rpath, path}})
	if err != nil {
		return fmt.Errorf("set rpath of %s: %w: %w", path, ErrToolFailed, err)
	}
	if !out.ExitCode.IsSuccess() {
		return fmt.Errorf("set rpath of %s: %w: exit status %s: %s",
			path, ErrToolFailed, out.ExitCode, strings.TrimSpace(string(out.Stderr)))
	}
	return nil
}
