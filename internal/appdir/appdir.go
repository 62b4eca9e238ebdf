// SPDX-License-Identifier: MPL-2.0

package appdir

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/appcraft/appcraft/internal/elfutil"
)

// AppRunName is the launcher file name at the AppDir root.
const AppRunName = "AppRun"

var (
	// ErrNotADirectory is returned when the AppDir root is not a directory.
	ErrNotADirectory = errors.New("not a directory")
	// ErrAppRunAlreadySet is returned when the launcher is set twice.
	ErrAppRunAlreadySet = errors.New("AppRun already set")
)

type (
	// AppDir is the bundle under construction.
	AppDir struct {
		path      string
		bundled   map[string]struct{}
		appRun    *AppRun
		inspector *elfutil.Inspector
	}

	// Option configures an AppDir.
	Option func(*AppDir)
)

// WithInspector shares an ELF inspector with the AppDir.
func WithInspector(in *elfutil.Inspector) Option {
	return func(a *AppDir) {
		a.inspector = in
	}
}

// Open attaches to the directory at path. Files already present are in
// place by construction, so the host paths they mirror start out bundled.
func Open(path string, opts ...Option) (*AppDir, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve AppDir path %s: %w", path, err)
	}
	st, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open AppDir: %w", err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("open AppDir %s: %w", abs, ErrNotADirectory)
	}

	a := &AppDir{path: abs, bundled: make(map[string]struct{})}
	for _, opt := range opts {
		opt(a)
	}
	if a.inspector == nil {
		a.inspector = elfutil.NewInspector(0)
	}

	err = a.Walk(func(path string) error {
		rel, _ := a.RelPath(path)
		if rel == AppRunName {
			return nil
		}
		a.MarkBundled(string(filepath.Separator) + rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan AppDir %s: %w", abs, err)
	}
	return a, nil
}

// Path returns the absolute AppDir root.
func (a *AppDir) Path() string { return a.path }

// Bundled reports whether src has been deployed.
func (a *AppDir) Bundled(src string) bool {
	_, ok := a.bundled[filepath.Clean(src)]
	return ok
}

// MarkBundled records src as deployed.
func (a *AppDir) MarkBundled(src string) {
	a.bundled[filepath.Clean(src)] = struct{}{}
}

// BundledPaths returns the bundled sources in lexical order.
func (a *AppDir) BundledPaths() []string {
	paths := make([]string, 0, len(a.bundled))
	for p := range a.bundled {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// Contains reports whether path lies inside the AppDir.
func (a *AppDir) Contains(path string) bool {
	_, ok := a.RelPath(path)
	return ok
}

// RelPath returns path relative to the root. The second result is false
// when path is outside the AppDir.
func (a *AppDir) RelPath(path string) (string, bool) {
	rel, err := filepath.Rel(a.path, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return rel, true
}

// TargetPath returns where src lives inside the AppDir. Paths already inside
// are returned unchanged.
func (a *AppDir) TargetPath(src string) string {
	if a.Contains(src) {
		return filepath.Clean(src)
	}
	return filepath.Join(a.path, src)
}

// LibraryDirs returns the AppDir directories holding bundled shared
// libraries, sorted and without duplicates.
func (a *AppDir) LibraryDirs() []string {
	var dirs []string
	for src := range a.bundled {
		target := a.TargetPath(src)
		if !a.inspector.HasSONAME(target) {
			continue
		}
		dir := filepath.Dir(target)
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

// Walk calls fn for every regular file under the root in lexical order.
func (a *AppDir) Walk(fn func(path string) error) error {
	return filepath.WalkDir(a.path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(path)
	})
}

// Inspector returns the ELF inspector shared by this build.
func (a *AppDir) Inspector() *elfutil.Inspector { return a.inspector }

// AppRun returns the launcher descriptor, or nil before configuration.
func (a *AppDir) AppRun() *AppRun { return a.appRun }

// SetAppRun installs the launcher descriptor. It can only be set once.
func (a *AppDir) SetAppRun(r *AppRun) error {
	if a.appRun != nil {
		return ErrAppRunAlreadySet
	}
	a.appRun = r
	return nil
}

// AppRunPath returns <root>/AppRun.
func (a *AppDir) AppRunPath() string {
	return filepath.Join(a.path, AppRunName)
}
