// SPDX-License-Identifier: MPL-2.0

package appdir

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/appcraft/appcraft/internal/testutil"
)

func TestOpen_MarksExistingFiles(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(root, "usr", "bin", "app"), []byte("#!/bin/sh\n"), 0o755)
	testutil.MustWriteFile(t, filepath.Join(root, "usr", "share", "app", "icon.png"), []byte("png"), 0o644)
	testutil.MustWriteFile(t, filepath.Join(root, AppRunName), []byte("#!/bin/sh\n"), 0o755)

	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	want := []string{"/usr/bin/app", "/usr/share/app/icon.png"}
	if diff := cmp.Diff(want, a.BundledPaths()); diff != "" {
		t.Errorf("BundledPaths() mismatch (-want +got):\n%s", diff)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if _, err := Open(filepath.Join(dir, "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Open(missing) error = %v, want ErrNotExist", err)
	}

	file := filepath.Join(dir, "file")
	testutil.MustWriteFile(t, file, nil, 0o644)
	if _, err := Open(file); !errors.Is(err, ErrNotADirectory) {
		t.Errorf("Open(file) error = %v, want ErrNotADirectory", err)
	}
}

func TestAppDir_BundledIsMonotonic(t *testing.T) {
	t.Parallel()

	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if a.Bundled("/usr/lib/libz.so.1") {
		t.Fatal("fresh AppDir reports a bundled path")
	}
	a.MarkBundled("/usr/lib/libz.so.1")
	a.MarkBundled("/usr/lib/../lib/libz.so.1")
	if !a.Bundled("/usr/lib/libz.so.1") {
		t.Error("Bundled() = false after MarkBundled")
	}
	if got := len(a.BundledPaths()); got != 1 {
		t.Errorf("BundledPaths() has %d entries, want 1", got)
	}
}

func TestAppDir_Paths(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if got, want := a.TargetPath("/usr/lib/libz.so.1"), filepath.Join(root, "usr/lib/libz.so.1"); got != want {
		t.Errorf("TargetPath(host) = %q, want %q", got, want)
	}
	inside := filepath.Join(root, "lib", "ld.so")
	if got := a.TargetPath(inside); got != inside {
		t.Errorf("TargetPath(inside) = %q, want unchanged", got)
	}

	if rel, ok := a.RelPath(inside); !ok || rel != filepath.Join("lib", "ld.so") {
		t.Errorf("RelPath(inside) = %q, %v", rel, ok)
	}
	if _, ok := a.RelPath("/usr/lib"); ok {
		t.Error("RelPath(outside) reported inside")
	}
	if a.Contains(root + "-sibling/file") {
		t.Error("Contains() matched a sibling directory with a shared prefix")
	}
	if got := a.AppRunPath(); got != filepath.Join(root, "AppRun") {
		t.Errorf("AppRunPath() = %q", got)
	}
}

func TestAppDir_SetAppRunOnce(t *testing.T) {
	t.Parallel()

	a, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if a.AppRun() != nil {
		t.Fatal("AppRun() set before configuration")
	}
	if err := a.SetAppRun(NewAppRun("usr/bin/app", nil)); err != nil {
		t.Fatalf("first SetAppRun() error = %v", err)
	}
	if err := a.SetAppRun(NewAppRun("usr/bin/other", nil)); !errors.Is(err, ErrAppRunAlreadySet) {
		t.Errorf("second SetAppRun() error = %v, want ErrAppRunAlreadySet", err)
	}
	if got := a.AppRun().Exec; got != "usr/bin/app" {
		t.Errorf("AppRun().Exec = %q, want the first launcher", got)
	}
}

func TestAppDir_LibraryDirs(t *testing.T) {
	t.Parallel()

	bin, interp := testutil.DynamicELF(t)
	root := t.TempDir()
	a, err := Open(root)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	// The dynamic loader carries a SONAME; the executable does not.
	for _, src := range []string{interp, bin} {
		if err := NewFileDependency(src).Deploy(a); err != nil {
			t.Fatalf("Deploy(%s) error = %v", src, err)
		}
		a.MarkBundled(src)
	}

	want := []string{filepath.Dir(a.TargetPath(interp))}
	if diff := cmp.Diff(want, a.LibraryDirs()); diff != "" {
		t.Errorf("LibraryDirs() mismatch (-want +got):\n%s", diff)
	}
}
