// SPDX-License-Identifier: MPL-2.0

// Package analyser runs an application under a syscall tracer and sorts the
// files it opened into executables, shared libraries and data.
package analyser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/exttool"
	"github.com/appcraft/appcraft/internal/logging"
)

// DefaultScratchPrefix is where interpreters of throwaway binaries live.
const DefaultScratchPrefix = "/tmp"

var (
	// ErrMissingBinary is returned when no binary to trace is configured.
	ErrMissingBinary = errors.New("no binary to analyse")
	// ErrTraceFailed wraps every error of a tracer that could not run.
	ErrTraceFailed = errors.New("trace failed")
)

type (
	// Tracer runs a traced process and reports the paths it opened.
	Tracer interface {
		Trace(ctx context.Context, req exttool.TraceRequest) (*exttool.TraceResult, error)
	}

	// InterpreterReader returns the dynamic loader of an ELF executable.
	InterpreterReader interface {
		Interpreter(ctx context.Context, path string) (string, error)
	}

	// SONAMEChecker reports whether a file is a shared library.
	SONAMEChecker interface {
		HasSONAME(path string) bool
	}

	// AccessFunc reports whether path is executable by the current user.
	AccessFunc func(path string) bool

	// Options configures an Analyser.
	Options struct {
		AppDir *appdir.AppDir
		// Binary is the program to trace, relative to the AppDir root unless
		// absolute.
		Binary string
		Args   []string
		// Env is the full environment of the traced run; nil inherits.
		Env []string
		// Timeout bounds the traced run; zero means no limit.
		Timeout time.Duration
		// ScratchPrefix filters out interpreters of temporary binaries.
		// Empty means DefaultScratchPrefix.
		ScratchPrefix string
		// Policy drops noise paths; nil means exclude.DefaultForUser.
		Policy       *exclude.Policy
		Tracer       Tracer
		Interpreters InterpreterReader
		Inspector    SONAMEChecker
		// Access defaults to an X_OK access(2) probe.
		Access AccessFunc
		Logger *slog.Logger
	}

	// Result is the classified outcome of one traced run. Each surviving
	// path is in exactly one of the lists, in trace order, except that
	// resolved interpreters are appended to Executables.
	Result struct {
		Executables []string
		Libraries   []string
		Data        []string

		files []string
	}

	// Analyser traces one application.
	Analyser struct {
		opts   Options
		logger *slog.Logger
	}
)

// New creates an Analyser.
func New(opts Options) (*Analyser, error) {
	if opts.AppDir == nil {
		return nil, errors.New("analyser requires an AppDir")
	}
	if opts.Binary == "" {
		return nil, ErrMissingBinary
	}
	if opts.Tracer == nil || opts.Interpreters == nil || opts.Inspector == nil {
		return nil, errors.New("analyser requires a tracer, an interpreter reader and an inspector")
	}
	if opts.ScratchPrefix == "" {
		opts.ScratchPrefix = DefaultScratchPrefix
	}
	if opts.Policy == nil {
		opts.Policy = exclude.DefaultForUser()
	}
	if opts.Access == nil {
		opts.Access = executableByUser
	}
	return &Analyser{opts: opts, logger: logging.OrDefault(opts.Logger)}, nil
}

// BinaryPath returns the absolute path of the traced binary.
func (an *Analyser) BinaryPath() string {
	if filepath.IsAbs(an.opts.Binary) {
		return an.opts.Binary
	}
	return filepath.Join(an.opts.AppDir.Path(), an.opts.Binary)
}

// RunAppAnalysis traces the application once and classifies what it opened.
// Only a tracer that cannot run is an error; a failing or timed out
// application yields a warning and whatever was observed.
func (an *Analyser) RunAppAnalysis(ctx context.Context) (*Result, error) {
	if an.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, an.opts.Timeout)
		defer cancel()
	}

	req := exttool.TraceRequest{
		Binary:       an.BinaryPath(),
		Args:         an.opts.Args,
		LibraryPaths: an.opts.AppDir.LibraryDirs(),
		Env:          an.opts.Env,
	}
	an.logger.Info("Tracing application", "binary", req.Binary)

	trace, err := an.opts.Tracer.Trace(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTraceFailed, err)
	}
	an.logger.Debug("Trace finished", "command", trace.Command, "paths", len(trace.Paths))

	switch {
	case trace.TimedOut:
		an.logger.Warn("Traced application did not finish before the timeout",
			"command", trace.Command, "timeout", an.opts.Timeout)
		an.logger.Warn("The recipe may be incomplete, verify the application runs correctly")
	case !trace.ExitCode.IsSuccess():
		an.logger.Warn("Traced application exited with a non-zero code",
			"command", trace.Command, "exit_code", int(trace.ExitCode))
		an.logger.Warn("The recipe may be incomplete, verify the application runs correctly")
	}

	res := an.classify(an.filter(trace.Paths))
	res.Executables = append(res.Executables, an.interpreters(ctx, res.Executables)...)

	if len(res.Libraries) == 0 {
		an.logger.Warn("No shared libraries were found, make sure all required libraries are reachable")
	}
	return res, nil
}

// filter drops duplicates and paths that are missing, directories, already
// in the AppDir or excluded.
func (an *Analyser) filter(paths []string) []string {
	seen := make(map[string]struct{}, len(paths))
	var out []string
	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		if an.opts.AppDir.Contains(p) || an.opts.Policy.Excluded(p) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// classify puts each path in the first matching class: executable, shared
// library, data.
func (an *Analyser) classify(paths []string) *Result {
	res := &Result{files: paths}
	for _, p := range paths {
		switch {
		case an.opts.Access(p):
			res.Executables = append(res.Executables, p)
		case an.opts.Inspector.HasSONAME(p):
			res.Libraries = append(res.Libraries, p)
		default:
			res.Data = append(res.Data, p)
		}
	}
	return res
}

// interpreters resolves the loaders of execs that are not already listed.
// Binaries without an interpreter and loaders under the scratch prefix are
// skipped.
func (an *Analyser) interpreters(ctx context.Context, execs []string) []string {
	var out []string
	for _, bin := range execs {
		interp, err := an.opts.Interpreters.Interpreter(ctx, bin)
		if err != nil {
			an.logger.Debug("No interpreter", "path", bin, "error", err)
			continue
		}
		if strings.HasPrefix(interp, an.opts.ScratchPrefix) {
			continue
		}
		if slices.Contains(execs, interp) || slices.Contains(out, interp) {
			continue
		}
		out = append(out, interp)
	}
	return out
}

// Files returns the paths that survived filtering, in trace order.
// Resolved interpreters are not included.
func (r *Result) Files() []string {
	return slices.Clone(r.files)
}

func executableByUser(path string) bool {
	return unix.Access(path, unix.X_OK) == nil
}
