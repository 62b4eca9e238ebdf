// SPDX-License-Identifier: MPL-2.0

package traced

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/exttool"
	"github.com/appcraft/appcraft/internal/logging"
	"github.com/appcraft/appcraft/internal/testutil"
)

type (
	stubTracer struct {
		paths []string
		err   error
	}
	noInterpreters struct{}
	sonames        map[string]bool
)

func (s stubTracer) Trace(context.Context, exttool.TraceRequest) (*exttool.TraceResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &exttool.TraceResult{Paths: s.paths}, nil
}

func (noInterpreters) Interpreter(_ context.Context, path string) (string, error) {
	return "", &exttool.InterpreterError{Path: path, Err: exttool.ErrNoInterpreter}
}

func (s sonames) HasSONAME(path string) bool { return s[path] }

func TestBaseDependencies(t *testing.T) {
	t.Parallel()

	host := t.TempDir()
	exe := filepath.Join(host, "bin", "tool")
	lib := filepath.Join(host, "lib", "libx.so.1")
	data := filepath.Join(host, "share", "x.dat")
	for _, p := range []string{exe, lib, data} {
		testutil.MustWriteFile(t, p, []byte("x"), 0o644)
	}

	d := New(analyser.Options{
		Binary:       "usr/bin/app",
		Policy:       exclude.New(),
		Tracer:       stubTracer{paths: []string{data, lib, exe}},
		Interpreters: noInterpreters{},
		Inspector:    sonames{lib: true},
		Access:       func(p string) bool { return p == exe },
		Logger:       logging.Discard(),
	})
	if d.ID() != ID {
		t.Errorf("ID() = %q", d.ID())
	}

	a, err := appdir.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	deps, err := d.BaseDependencies(context.Background(), a)
	if err != nil {
		t.Fatalf("BaseDependencies() error = %v", err)
	}

	got := make([]string, len(deps))
	for i, dep := range deps {
		got[i] = dep.Source()
	}
	if diff := cmp.Diff([]string{exe, lib, data}, got); diff != "" {
		t.Errorf("BaseDependencies() mismatch (-want +got):\n%s", diff)
	}
	if d.Result() == nil || len(d.Result().Data) != 1 {
		t.Errorf("Result() = %+v", d.Result())
	}
}

func TestBaseDependencies_TracerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("strace: ptrace denied")
	d := New(analyser.Options{
		Binary:       "usr/bin/app",
		Policy:       exclude.New(),
		Tracer:       stubTracer{err: boom},
		Interpreters: noInterpreters{},
		Inspector:    sonames{},
		Logger:       logging.Discard(),
	})
	a, err := appdir.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := d.BaseDependencies(context.Background(), a); !errors.Is(err, boom) {
		t.Errorf("BaseDependencies() error = %v, want %v", err, boom)
	}
}
