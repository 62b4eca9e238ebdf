// SPDX-License-Identifier: MPL-2.0

// Package sharedlib bundles the dynamic linking closure of ELF files: their
// program interpreter and every DT_NEEDED library, resolved the way the
// dynamic loader would resolve them.
package sharedlib

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/logging"
)

// ID is the driver identifier used in recipes.
const ID = "libraries"

// ErrNoAppRun is returned when Configure runs before the launcher is set.
var ErrNoAppRun = errors.New("AppRun not set")

// genericLibDirs follow the multiarch directories in the default search.
var genericLibDirs = []string{"/lib64", "/usr/lib64", "/lib", "/usr/lib"}

type (
	// RPathSetter rewrites the RUNPATH of an ELF file.
	RPathSetter interface {
		SetRPath(ctx context.Context, path, rpath string) error
	}

	// Options configures the driver.
	Options struct {
		// SearchPaths are tried after RPATH/RUNPATH and the AppDir library
		// directories, before the architecture defaults.
		SearchPaths []string
		// Exclude holds globs matched against both library names and
		// resolved paths; matches are never bundled.
		Exclude []string
		// PatchRPath rewrites bundled ELF files to find their libraries
		// relative to $ORIGIN.
		PatchRPath bool
		// Patcher is required when PatchRPath is set.
		Patcher RPathSetter
		// Inspector is shared with the AppDir; nil creates a private one.
		Inspector *elfutil.Inspector
		Logger    *slog.Logger
	}

	// Driver is the ELF shared-library driver.
	Driver struct {
		opts    Options
		exclude *exclude.Policy
		logger  *slog.Logger
	}
)

// New creates the driver.
func New(opts Options) (*Driver, error) {
	policy := exclude.New(opts.Exclude...)
	if err := policy.Validate(); err != nil {
		return nil, fmt.Errorf("library exclude: %w", err)
	}
	if opts.PatchRPath && opts.Patcher == nil {
		return nil, errors.New("rpath patching requires a patcher")
	}
	if opts.Inspector == nil {
		opts.Inspector = elfutil.NewInspector(0)
	}
	return &Driver{opts: opts, exclude: policy, logger: logging.OrDefault(opts.Logger)}, nil
}

// ID implements driver.Driver.
func (d *Driver) ID() string { return ID }

// BaseDependencies returns every ELF file already in the AppDir. They are
// deployed in place, which normalizes their permissions, and seed the
// lookup of their libraries.
func (d *Driver) BaseDependencies(_ context.Context, a *appdir.AppDir) ([]appdir.Dependency, error) {
	var deps []appdir.Dependency
	err := a.Walk(func(path string) error {
		ok, err := elfutil.IsELF(path)
		if err != nil {
			return err
		}
		if ok {
			deps = append(deps, appdir.NewFileDependency(path))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list ELF files in %s: %w", a.Path(), err)
	}
	return deps, nil
}

// LookupDependencies returns the interpreter and resolved DT_NEEDED entries
// of path. Non-ELF files have none.
func (d *Driver) LookupDependencies(_ context.Context, path string, a *appdir.AppDir) ([]appdir.Dependency, error) {
	if ok, err := elfutil.IsELF(path); err != nil || !ok {
		return nil, nil
	}
	info, err := d.opts.Inspector.Inspect(path)
	if err != nil {
		d.logger.Warn("Skipping unreadable ELF file", "path", path, "error", err)
		return nil, nil
	}

	var deps []appdir.Dependency
	if info.Interpreter != "" && !d.excluded(info.Interpreter) {
		if _, err := os.Stat(info.Interpreter); err == nil {
			deps = append(deps, appdir.NewFileDependency(info.Interpreter))
		}
	}

	r := &resolver{driver: d, path: path, info: info, appDir: a}
	for _, name := range info.Needed {
		if d.excluded(name) {
			d.logger.Debug("Library excluded", "name", name, "needed_by", path)
			continue
		}
		lib, err := r.resolve(name)
		if err != nil {
			return nil, err
		}
		if lib == "" {
			d.logger.Warn("Unable to resolve library, the bundle may be incomplete",
				"name", name, "needed_by", path)
			continue
		}
		if d.excluded(lib) {
			continue
		}
		deps = append(deps, appdir.NewFileDependency(lib))
	}
	return deps, nil
}

// Configure points LD_LIBRARY_PATH at the bundled library directories and
// starts the executable through its bundled interpreter, if any.
func (d *Driver) Configure(ctx context.Context, a *appdir.AppDir) error {
	run := a.AppRun()
	if run == nil {
		return ErrNoAppRun
	}

	libDirs := a.LibraryDirs()
	vars := make([]string, 0, len(libDirs))
	for _, dir := range libDirs {
		rel, _ := a.RelPath(dir)
		vars = append(vars, "$APPDIR/"+filepath.ToSlash(rel))
	}
	run.PrependPath("LD_LIBRARY_PATH", vars...)

	if interp := d.bundledInterpreter(a, run.Exec); interp != "" {
		run.Interpreter = interp
	}

	if d.opts.PatchRPath {
		return d.patchRPaths(ctx, a, libDirs)
	}
	return nil
}

func (d *Driver) bundledInterpreter(a *appdir.AppDir, exec string) string {
	target := filepath.Join(a.Path(), exec)
	if ok, err := elfutil.IsELF(target); err != nil || !ok {
		return ""
	}
	info, err := d.opts.Inspector.Inspect(target)
	if err != nil || info.Interpreter == "" || !a.Bundled(info.Interpreter) {
		return ""
	}
	rel, _ := a.RelPath(a.TargetPath(info.Interpreter))
	return filepath.ToSlash(rel)
}

func (d *Driver) patchRPaths(ctx context.Context, a *appdir.AppDir, libDirs []string) error {
	for _, src := range a.BundledPaths() {
		target := a.TargetPath(src)
		if ok, err := elfutil.IsELF(target); err != nil || !ok {
			continue
		}
		info, err := d.opts.Inspector.Inspect(target)
		if err != nil || len(info.Needed) == 0 {
			continue
		}

		rpath := originRelative(filepath.Dir(target), libDirs)
		d.logger.Debug("Setting RUNPATH", "path", target, "rpath", rpath)
		if err := d.opts.Patcher.SetRPath(ctx, target, rpath); err != nil {
			return err
		}
	}
	return nil
}

// originRelative expresses dirs relative to from as a $ORIGIN search path.
func originRelative(from string, dirs []string) string {
	entries := make([]string, 0, len(dirs))
	for _, dir := range dirs {
		rel, err := filepath.Rel(from, dir)
		if err != nil {
			continue
		}
		if rel == "." {
			entries = append(entries, "$ORIGIN")
			continue
		}
		entries = append(entries, "$ORIGIN/"+filepath.ToSlash(rel))
	}
	return strings.Join(entries, ":")
}

func (d *Driver) excluded(nameOrPath string) bool {
	return d.exclude.Excluded(nameOrPath) || d.exclude.Excluded(filepath.Base(nameOrPath))
}
