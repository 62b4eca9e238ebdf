// SPDX-License-Identifier: MPL-2.0

// Package builder computes the dependency closure of an application and
// deploys it into an AppDir.
//
// The closure is a worklist: every driver seeds it with base dependencies,
// then each popped dependency is offered to every driver for lookup. Items
// are popped last-in first-out. A source already bundled is dropped when it
// is discovered and never deployed twice.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/driver"
	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/issue"
	"github.com/appcraft/appcraft/internal/logging"
)

// ErrNoExec is returned when no primary executable is configured.
var ErrNoExec = errors.New("no executable configured")

type (
	// OpenFunc attaches the AppDir at path.
	OpenFunc func(path string) (*appdir.AppDir, error)

	// Options configures a Builder.
	Options struct {
		// AppDirPath is the destination root.
		AppDirPath string
		// Exec is the primary executable, relative to the AppDir root.
		Exec string
		// Args follow Exec in the launcher; nil forwards the launcher's own.
		Args []string
		// Registry holds the drivers in the order they are consulted.
		Registry *driver.Registry
		// Symbols checks whether the primary executable is runnable. Nil
		// skips the check.
		Symbols elfutil.SymbolLister
		// OpenAppDir defaults to appdir.Open.
		OpenAppDir OpenFunc
		Logger     *slog.Logger
	}

	// Report summarizes one build.
	Report struct {
		AppDir *appdir.AppDir
		// Deployed lists sources in deployment order.
		Deployed []string
	}

	// Builder runs the dependency closure over a set of drivers.
	Builder struct {
		opts   Options
		logger *slog.Logger
	}
)

// New creates a Builder.
func New(opts Options) (*Builder, error) {
	if opts.Exec == "" {
		return nil, ErrNoExec
	}
	if opts.Registry == nil {
		return nil, errors.New("builder requires a driver registry")
	}
	if opts.OpenAppDir == nil {
		opts.OpenAppDir = func(path string) (*appdir.AppDir, error) { return appdir.Open(path) }
	}
	return &Builder{opts: opts, logger: logging.OrDefault(opts.Logger)}, nil
}

// Build attaches the AppDir, bundles the closure and writes the launcher.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	a, err := b.opts.OpenAppDir(b.opts.AppDirPath)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("open AppDir").
			WithResource(b.opts.AppDirPath).
			WithSuggestion("Create the directory and copy the application into it").
			Wrap(err).
			BuildError()
	}

	report, err := b.BundleDependencies(ctx, a)
	if err != nil {
		return report, err
	}
	if err := b.Configure(ctx, a); err != nil {
		return report, err
	}

	b.logger.Info("AppDir build completed", "path", a.Path(), "deployed", len(report.Deployed))
	return report, nil
}

// BundleDependencies deploys the transitive closure of the drivers' base
// dependencies. A driver or deployment failure stops the build and leaves
// whatever was already copied.
func (b *Builder) BundleDependencies(ctx context.Context, a *appdir.AppDir) (*Report, error) {
	b.logger.Info("Bundling dependencies into the AppDir", "path", a.Path())
	report := &Report{AppDir: a}

	worklist, err := b.baseDependencies(ctx, a)
	if err != nil {
		return report, err
	}

	for len(worklist) > 0 {
		if err := ctx.Err(); err != nil {
			return report, issue.WrapWithContext(err, "bundle dependencies", a.Path())
		}

		dep := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		src := dep.Source()

		b.logger.Debug("Inspecting", "path", src)
		found, err := b.lookup(ctx, a, src)
		if err != nil {
			return report, err
		}
		worklist = append(worklist, found...)

		if a.Bundled(src) {
			continue
		}
		if err := dep.Deploy(a); err != nil {
			return report, issue.NewErrorContext().
				WithOperation("deploy dependency").
				WithResource(src).
				WithSuggestion("Check that the file is readable and the AppDir is writable").
				Wrap(err).
				BuildError()
		}
		a.MarkBundled(src)
		report.Deployed = append(report.Deployed, src)
	}
	return report, nil
}

func (b *Builder) baseDependencies(ctx context.Context, a *appdir.AppDir) ([]appdir.Dependency, error) {
	var deps []appdir.Dependency
	for _, d := range b.opts.Registry.Drivers() {
		lister, ok := d.(driver.BaseLister)
		if !ok {
			continue
		}
		base, err := lister.BaseDependencies(ctx, a)
		if err != nil {
			return nil, driverError("list base dependencies", d.ID(), err)
		}
		b.logger.Debug("Base dependencies", "driver", d.ID(), "count", len(base))
		deps = append(deps, base...)
	}
	return deps, nil
}

// lookup asks every driver for the dependencies of src, dropping those
// already bundled.
func (b *Builder) lookup(ctx context.Context, a *appdir.AppDir, src string) ([]appdir.Dependency, error) {
	var found []appdir.Dependency
	for _, d := range b.opts.Registry.Drivers() {
		fl, ok := d.(driver.FileLookup)
		if !ok {
			continue
		}
		deps, err := fl.LookupDependencies(ctx, src, a)
		if err != nil {
			return nil, driverError("look up dependencies of "+src, d.ID(), err)
		}
		for _, dep := range deps {
			if !a.Bundled(dep.Source()) {
				found = append(found, dep)
			}
		}
	}
	return found, nil
}

// Configure installs the launcher, lets every driver adjust the bundle once
// and writes <root>/AppRun.
func (b *Builder) Configure(ctx context.Context, a *appdir.AppDir) error {
	b.logger.Info("Configuring AppDir", "path", a.Path())

	exec := strings.TrimPrefix(b.opts.Exec, "/")
	b.checkExecutable(ctx, filepath.Join(a.Path(), exec))

	if err := a.SetAppRun(appdir.NewAppRun(exec, b.opts.Args)); err != nil {
		return issue.WrapWithContext(err, "configure AppDir", a.Path())
	}

	for _, d := range b.opts.Registry.Drivers() {
		c, ok := d.(driver.Configurer)
		if !ok {
			continue
		}
		if err := c.Configure(ctx, a); err != nil {
			return driverError("configure AppDir", d.ID(), err)
		}
	}

	if err := a.AppRun().Save(a.AppRunPath()); err != nil {
		return issue.NewErrorContext().
			WithOperation("write launcher").
			WithResource(a.AppRunPath()).
			Wrap(err).
			BuildError()
	}
	return nil
}

// checkExecutable warns when the primary executable is an ELF file that
// does not look runnable.
func (b *Builder) checkExecutable(ctx context.Context, path string) {
	if b.opts.Symbols == nil {
		return
	}
	if ok, err := elfutil.IsELF(path); err != nil || !ok {
		return
	}
	if !elfutil.IsELFExecutable(ctx, b.opts.Symbols, path) {
		b.logger.Warn("Primary executable does not look like an ELF executable", "path", path)
	}
}

func driverError(op, id string, err error) error {
	return issue.NewErrorContext().
		WithOperation(op).
		WithResource(fmt.Sprintf("driver %q", id)).
		WithSuggestion("Run with --verbose to see which file the driver was processing").
		Wrap(err).
		BuildError()
}
