// SPDX-License-Identifier: MPL-2.0

// Package traced seeds the build with every file the application opened
// while running under the syscall tracer.
package traced

import (
	"context"
	"log/slog"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/logging"
)

// ID is the driver identifier used in recipes.
const ID = "runtime"

// Driver runs one analysis per build against the AppDir being built.
type Driver struct {
	opts   analyser.Options
	logger *slog.Logger
	result *analyser.Result
}

// New creates the driver. opts.AppDir is filled in when the build starts.
func New(opts analyser.Options) *Driver {
	return &Driver{opts: opts, logger: logging.OrDefault(opts.Logger)}
}

// ID implements driver.Driver.
func (d *Driver) ID() string { return ID }

// BaseDependencies traces the application and returns every classified file.
func (d *Driver) BaseDependencies(ctx context.Context, a *appdir.AppDir) ([]appdir.Dependency, error) {
	opts := d.opts
	opts.AppDir = a
	an, err := analyser.New(opts)
	if err != nil {
		return nil, err
	}
	res, err := an.RunAppAnalysis(ctx)
	if err != nil {
		return nil, err
	}
	d.result = res
	d.logger.Info("Runtime analysis finished",
		"executables", len(res.Executables), "libraries", len(res.Libraries), "data", len(res.Data))

	var deps []appdir.Dependency
	for _, group := range [][]string{res.Executables, res.Libraries, res.Data} {
		for _, p := range group {
			deps = append(deps, appdir.NewFileDependency(p))
		}
	}
	return deps, nil
}

// Result returns the last analysis, or nil before the first build.
func (d *Driver) Result() *analyser.Result { return d.result }
