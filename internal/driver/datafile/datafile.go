// SPDX-License-Identifier: MPL-2.0

// Package datafile bundles data files declared in the recipe with globs.
package datafile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/logging"
)

// ID is the driver identifier used in recipes.
const ID = "data"

// sharePrefix is the AppDir subtree searched through XDG_DATA_DIRS.
const sharePrefix = "usr/share"

// ErrRelativePattern is returned for include globs that are not absolute.
var ErrRelativePattern = errors.New("data include pattern must be absolute")

type (
	// Options configures the driver.
	Options struct {
		// Include lists absolute doublestar globs of host files to bundle.
		Include []string
		// Exclude removes matches of Include.
		Exclude []string
		Logger  *slog.Logger
	}

	// Driver is the declared data-file driver.
	Driver struct {
		include []string
		exclude *exclude.Policy
		logger  *slog.Logger
	}
)

// New validates the globs and creates the driver.
func New(opts Options) (*Driver, error) {
	for _, p := range opts.Include {
		if !filepath.IsAbs(p) {
			return nil, fmt.Errorf("%w: %s", ErrRelativePattern, p)
		}
		if !doublestar.ValidatePattern(p) {
			return nil, &exclude.InvalidPatternError{Pattern: p}
		}
	}
	policy := exclude.New(opts.Exclude...)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	return &Driver{include: opts.Include, exclude: policy, logger: logging.OrDefault(opts.Logger)}, nil
}

// ID implements driver.Driver.
func (d *Driver) ID() string { return ID }

// BaseDependencies returns the regular files matched by the include globs
// that are neither excluded nor already inside the AppDir.
func (d *Driver) BaseDependencies(_ context.Context, a *appdir.AppDir) ([]appdir.Dependency, error) {
	seen := make(map[string]struct{})
	var deps []appdir.Dependency
	for _, pattern := range d.include {
		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", pattern, err)
		}
		if len(matches) == 0 {
			d.logger.Warn("Data pattern matched no files", "pattern", pattern)
		}
		for _, m := range matches {
			if _, dup := seen[m]; dup {
				continue
			}
			seen[m] = struct{}{}
			if a.Contains(m) || d.exclude.Excluded(m) {
				continue
			}
			deps = append(deps, appdir.NewFileDependency(m))
		}
	}
	return deps, nil
}

// Configure exposes the bundled usr/share tree through XDG_DATA_DIRS.
func (d *Driver) Configure(_ context.Context, a *appdir.AppDir) error {
	run := a.AppRun()
	if run == nil {
		return nil
	}
	for _, src := range a.BundledPaths() {
		rel, _ := a.RelPath(a.TargetPath(src))
		if strings.HasPrefix(filepath.ToSlash(rel), sharePrefix+"/") {
			run.PrependPath("XDG_DATA_DIRS", "$APPDIR/"+sharePrefix)
			return nil
		}
	}
	return nil
}
