// SPDX-License-Identifier: MPL-2.0

package exttool

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/appcraft/appcraft/pkg/types"
)

// openatPattern extracts the path argument of one openat call per line.
var openatPattern = regexp.MustCompile(`openat\(.*?"(.*?)".*`)

type (
	// TraceRequest describes one traced application run.
	TraceRequest struct {
		// Binary is the program to launch.
		Binary string
		// Args are passed to Binary.
		Args []string
		// LibraryPaths are joined into LD_LIBRARY_PATH for the traced process.
		LibraryPaths []string
		// Env replaces the tracer's environment when non-nil.
		Env []string
	}

	// TraceResult is what a traced run observed.
	TraceResult struct {
		// Paths are the opened paths in trace order, duplicates included.
		Paths []string
		// ExitCode is the tracer's exit status, which mirrors the application's.
		ExitCode types.ExitCode
		// TimedOut is set when the run was stopped by the context deadline.
		TimedOut bool
		// Command is the shell rendering of the invocation.
		Command string
	}

	// Strace traces file opens of a process tree.
	Strace struct {
		// Path is the strace executable.
		Path string
		// Runner executes the command.
		Runner Runner
	}
)

// Command builds the strace invocation for req:
//
//	strace -f -E LD_LIBRARY_PATH=<dirs> -e trace=openat --status=successful <bin> <args>
//
// -f follows children, -E sets the variable in the traced environment only,
// and the trace is limited to successful openat calls.
func (s *Strace) Command(req TraceRequest) Command {
	path := s.Path
	if path == "" {
		path = StraceName
	}
	args := []string{
		"-f",
		"-E", "LD_LIBRARY_PATH=" + strings.Join(req.LibraryPaths, ":"),
		"-e", "trace=openat",
		"--status=successful",
		req.Binary,
	}
	args = append(args, req.Args...)
	return Command{Name: path, Args: args, Env: req.Env}
}

// Trace runs the application under strace and collects the opened paths.
// A non-zero exit or a deadline stop still yields the captured paths; only a
// failure to launch strace is an error.
func (s *Strace) Trace(ctx context.Context, req TraceRequest) (*TraceResult, error) {
	cmd := s.Command(req)
	result := &TraceResult{Command: cmd.String()}

	out, err := s.Runner.Run(ctx, cmd)
	if err != nil {
		if out == nil || !errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("trace %s: %w", req.Binary, err)
		}
		result.TimedOut = true
	}

	result.ExitCode = out.ExitCode
	result.Paths = ParseOpenat(out.Stderr)
	return result, nil
}

// ParseOpenat extracts opened paths from strace's diagnostic output, at most
// one per line.
func ParseOpenat(stderr []byte) []string {
	var paths []string
	sc := bufio.NewScanner(bytes.NewReader(stderr))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		m := openatPattern.FindSubmatch(sc.Bytes())
		if m == nil {
			continue
		}
		paths = append(paths, string(m[1]))
	}
	return paths
}
