// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/config"
	"github.com/appcraft/appcraft/internal/driver"
	"github.com/appcraft/appcraft/internal/driver/datafile"
	"github.com/appcraft/appcraft/internal/driver/sharedlib"
	"github.com/appcraft/appcraft/internal/driver/traced"
	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/exttool"
)

// pipeline is everything one build shares between its drivers.
type pipeline struct {
	registry  *driver.Registry
	runtime   *traced.Driver
	inspector *elfutil.Inspector
	// symbols is nil when readelf is not installed.
	symbols elfutil.SymbolLister
}

// requiredTools lists the external tools the enabled drivers need.
func requiredTools(cfg *config.Config) []string {
	var names []string
	if cfg.HasDriver(config.DriverRuntime) {
		names = append(names, exttool.StraceName)
	}
	if cfg.HasDriver(config.DriverRuntime) || (cfg.HasDriver(config.DriverLibraries) && cfg.Libraries.PatchRPath) {
		names = append(names, exttool.PatchElfName)
	}
	return names
}

// analyserOptions maps the runtime section of cfg onto analyser options.
// The AppDir is attached by the caller.
func (a *App) analyserOptions(cfg *config.Config, tools map[string]string, in *elfutil.Inspector, logger *slog.Logger) (analyser.Options, error) {
	env, err := cfg.Runtime.Environ(os.Environ())
	if err != nil {
		return analyser.Options{}, fmt.Errorf("runtime environment: %w", err)
	}
	return analyser.Options{
		Binary:        cfg.App.Exec,
		Args:          cfg.Runtime.Args,
		Env:           env,
		Timeout:       cfg.Runtime.Timeout,
		ScratchPrefix: cfg.Runtime.ScratchPrefix,
		Policy:        exclude.DefaultForUser().With(cfg.Runtime.Exclude...),
		Tracer:        &exttool.Strace{Path: tools[exttool.StraceName], Runner: a.Runner},
		Interpreters:  &exttool.PatchElf{Path: tools[exttool.PatchElfName], Runner: a.Runner},
		Inspector:     in,
		Logger:        logger,
	}, nil
}

// newPipeline resolves tools and creates the enabled drivers in recipe order.
func (a *App) newPipeline(cfg *config.Config, logger *slog.Logger) (*pipeline, error) {
	tools, err := a.requireTools(requiredTools(cfg)...)
	if err != nil {
		return nil, err
	}

	p := &pipeline{inspector: elfutil.NewInspector(0)}
	if path := a.optionalTool(exttool.ReadelfName); path != "" {
		p.symbols = &exttool.Readelf{Path: path, Runner: a.Runner}
	} else {
		logger.Debug("readelf not found, skipping the executable check")
	}

	var drivers []driver.Driver
	for _, id := range cfg.Drivers {
		if !cfg.HasDriver(id) {
			continue
		}
		switch id {
		case config.DriverRuntime:
			opts, err := a.analyserOptions(cfg, tools, p.inspector, logger)
			if err != nil {
				return nil, err
			}
			p.runtime = traced.New(opts)
			drivers = append(drivers, p.runtime)
		case config.DriverLibraries:
			opts := sharedlib.Options{
				SearchPaths: cfg.Libraries.SearchPaths,
				Exclude:     cfg.Libraries.Exclude,
				PatchRPath:  cfg.Libraries.PatchRPath,
				Inspector:   p.inspector,
				Logger:      logger,
			}
			if cfg.Libraries.PatchRPath {
				opts.Patcher = &exttool.PatchElf{Path: tools[exttool.PatchElfName], Runner: a.Runner}
			}
			d, err := sharedlib.New(opts)
			if err != nil {
				return nil, err
			}
			drivers = append(drivers, d)
		case config.DriverData:
			d, err := datafile.New(datafile.Options{
				Include: cfg.Data.Include,
				Exclude: cfg.Data.Exclude,
				Logger:  logger,
			})
			if err != nil {
				return nil, err
			}
			drivers = append(drivers, d)
		default:
			return nil, fmt.Errorf("%w: %q", driver.ErrUnknownDriver, id)
		}
	}

	p.registry, err = driver.NewRegistry(drivers...)
	if err != nil {
		return nil, err
	}
	return p, nil
}
