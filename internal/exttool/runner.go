// SPDX-License-Identifier: MPL-2.0

package exttool

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/appcraft/appcraft/pkg/types"

	"golang.org/x/sys/unix"
	"mvdan.cc/sh/v3/syntax"
)

// waitDelay bounds how long Run keeps reading output after the context
// expired and the process group was killed. Processes that left the group
// (setsid daemons) may still hold the pipes open.
const waitDelay = 2 * time.Second

type (
	// Command is one external program invocation.
	Command struct {
		// Name is the program path or name.
		Name string
		// Args are passed verbatim, without a shell.
		Args []string
		// Env replaces the process environment when non-nil.
		Env []string
	}

	// Output is what a finished command produced. A non-zero ExitCode is not
	// an error by itself; callers decide what it means.
	Output struct {
		Stdout   []byte
		Stderr   []byte
		ExitCode types.ExitCode
	}

	// Runner executes commands. Run returns an error only when the command
	// could not be started or did not finish on its own (context expiry); in
	// the latter case the partial Output is returned alongside the error.
	Runner interface {
		Run(ctx context.Context, cmd Command) (*Output, error)
	}

	// ExecCommandFunc is the function signature for creating exec.Cmd.
	// This allows injection of mock implementations for testing.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// ExecRunnerOption configures an ExecRunner.
	ExecRunnerOption func(*ExecRunner)

	// ExecRunner runs commands as child processes.
	ExecRunner struct {
		execCommand ExecCommandFunc
	}
)

// WithExecCommand overrides how exec.Cmd values are created.
func WithExecCommand(fn ExecCommandFunc) ExecRunnerOption {
	return func(r *ExecRunner) {
		r.execCommand = fn
	}
}

// NewExecRunner creates a Runner backed by os/exec.
func NewExecRunner(opts ...ExecRunnerOption) *ExecRunner {
	r := &ExecRunner{execCommand: exec.CommandContext}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes cmd and waits for it to exit.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (*Output, error) {
	c := r.execCommand(ctx, cmd.Name, cmd.Args...)
	if cmd.Env != nil {
		c.Env = cmd.Env
	}

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	// Expiry kills the whole process group, including whatever the
	// traced application spawned.
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error { return killGroup(c) }
	c.WaitDelay = waitDelay

	err := c.Run()
	out := &Output{
		Stdout:   stdout.Bytes(),
		Stderr:   stderr.Bytes(),
		ExitCode: types.FromProcessState(c.ProcessState),
	}

	if ctxErr := ctx.Err(); ctxErr != nil && err != nil {
		return out, fmt.Errorf("%s did not finish: %w", cmd.Name, ctxErr)
	}

	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		return nil, fmt.Errorf("failed to run %s: %w", cmd.Name, err)
	}
	return out, nil
}

func killGroup(c *exec.Cmd) error {
	if err := unix.Kill(-c.Process.Pid, unix.SIGKILL); err != nil {
		return c.Process.Kill()
	}
	return nil
}

// String renders cmd as a copy-pasteable shell command line.
func (cmd Command) String() string {
	parts := make([]string, 0, len(cmd.Args)+1)
	for _, word := range append([]string{cmd.Name}, cmd.Args...) {
		parts = append(parts, quote(word))
	}
	return strings.Join(parts, " ")
}

func quote(word string) string {
	q, err := syntax.Quote(word, syntax.LangPOSIX)
	if err != nil {
		// Only words with NUL bytes or invalid UTF-8 cannot be quoted.
		return fmt.Sprintf("%q", word)
	}
	return q
}
