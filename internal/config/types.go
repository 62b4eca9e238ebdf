// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/appcraft/appcraft/internal/exclude"
	"github.com/appcraft/appcraft/internal/logging"
)

const (
	// DriverRuntime traces the application. Driver IDs are defined locally to
	// avoid coupling config to the driver packages.
	DriverRuntime = "runtime"
	// DriverLibraries resolves ELF shared libraries.
	DriverLibraries = "libraries"
	// DriverData bundles declared data files.
	DriverData = "data"

	// DefaultTimeout bounds a traced run.
	DefaultTimeout = 5 * time.Minute
	// DefaultScratchPrefix holds interpreters that are never bundled.
	DefaultScratchPrefix = "/tmp"
)

var (
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid recipe")
	// ErrMissingField is returned when a required field is empty.
	ErrMissingField = errors.New("required field is empty")
	// ErrUnknownDriver is returned for a driver ID no component provides.
	ErrUnknownDriver = errors.New("unknown driver")
	// ErrDuplicateDriver is returned when a driver is listed twice.
	ErrDuplicateDriver = errors.New("duplicate driver")
	// ErrRecipeNotFound is returned when an explicit recipe does not exist.
	ErrRecipeNotFound = errors.New("recipe not found")
)

type (
	// Config is a fully resolved build recipe.
	Config struct {
		AppDir    AppDirConfig    `json:"appdir" mapstructure:"appdir"`
		App       AppConfig       `json:"app" mapstructure:"app"`
		Drivers   []string        `json:"drivers" mapstructure:"drivers"`
		Runtime   RuntimeConfig   `json:"runtime" mapstructure:"runtime"`
		Libraries LibrariesConfig `json:"libraries" mapstructure:"libraries"`
		Data      DataConfig      `json:"data" mapstructure:"data"`
		Log       LogConfig       `json:"log" mapstructure:"log"`

		// Source is the recipe file the values came from, empty for defaults.
		Source string `json:"-" mapstructure:"-"`
	}

	// AppDirConfig locates the bundle.
	AppDirConfig struct {
		Path string `json:"path" mapstructure:"path"`
	}

	// AppConfig describes the launched application.
	AppConfig struct {
		Exec string   `json:"exec" mapstructure:"exec"`
		Args []string `json:"args" mapstructure:"args"`
	}

	// RuntimeConfig drives the traced run.
	RuntimeConfig struct {
		Enabled       bool              `json:"enabled" mapstructure:"enabled"`
		Args          []string          `json:"args" mapstructure:"args"`
		Env           map[string]string `json:"env" mapstructure:"env"`
		EnvFile       string            `json:"env_file" mapstructure:"env_file"`
		Timeout       time.Duration     `json:"timeout" mapstructure:"timeout"`
		ScratchPrefix string            `json:"scratch_prefix" mapstructure:"scratch_prefix"`
		Exclude       []string          `json:"exclude" mapstructure:"exclude"`
	}

	// LibrariesConfig drives shared-library resolution.
	LibrariesConfig struct {
		SearchPaths []string `json:"search_paths" mapstructure:"search_paths"`
		Exclude     []string `json:"exclude" mapstructure:"exclude"`
		PatchRPath  bool     `json:"patch_rpath" mapstructure:"patch_rpath"`
	}

	// DataConfig declares extra data files.
	DataConfig struct {
		Include []string `json:"include" mapstructure:"include"`
		Exclude []string `json:"exclude" mapstructure:"exclude"`
	}

	// LogConfig sets the default verbosity.
	LogConfig struct {
		Level logging.Level `json:"level" mapstructure:"level"`
	}

	// InvalidConfigError collects every problem found in a recipe.
	// It wraps ErrInvalidConfig for errors.Is() compatibility.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// FieldError names the recipe field a problem was found in.
	FieldError struct {
		Field string
		Err   error
	}
)

// DefaultConfig returns the recipe defaults.
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Args: []string{"$@"},
		},
		Drivers: []string{DriverRuntime, DriverLibraries, DriverData},
		Runtime: RuntimeConfig{
			Enabled:       true,
			Args:          []string{},
			Env:           map[string]string{},
			Timeout:       DefaultTimeout,
			ScratchPrefix: DefaultScratchPrefix,
			Exclude:       []string{},
		},
		Libraries: LibrariesConfig{
			SearchPaths: []string{},
			Exclude:     []string{},
		},
		Data: DataConfig{
			Include: []string{},
			Exclude: []string{},
		},
		Log: LogConfig{Level: logging.LevelInfo},
	}
}

// KnownDrivers lists the driver IDs a recipe may use, in default order.
func KnownDrivers() []string {
	return []string{DriverRuntime, DriverLibraries, DriverData}
}

// HasDriver reports whether id is enabled by the recipe.
func (c *Config) HasDriver(id string) bool {
	if id == DriverRuntime && !c.Runtime.Enabled {
		return false
	}
	return slices.Contains(c.Drivers, id)
}

// ResolvePath resolves a recipe-relative path against the recipe directory,
// or the working directory for defaults.
func (c *Config) ResolvePath(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if c.Source != "" {
		return filepath.Join(filepath.Dir(c.Source), path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// Validate checks the constraints needed to run a build that the schema
// cannot express or that env overrides may have bypassed.
func (c *Config) Validate() error {
	var errs []error
	field := func(name string, err error) {
		errs = append(errs, &FieldError{Field: name, Err: err})
	}

	if strings.TrimSpace(c.AppDir.Path) == "" {
		field("appdir.path", ErrMissingField)
	}
	if strings.TrimSpace(c.App.Exec) == "" {
		field("app.exec", ErrMissingField)
	}

	seen := make(map[string]bool, len(c.Drivers))
	for _, id := range c.Drivers {
		switch {
		case !slices.Contains(KnownDrivers(), id):
			field("drivers", fmt.Errorf("%w: %q", ErrUnknownDriver, id))
		case seen[id]:
			field("drivers", fmt.Errorf("%w: %q", ErrDuplicateDriver, id))
		}
		seen[id] = true
	}

	if c.Runtime.Timeout < 0 {
		field("runtime.timeout", fmt.Errorf("negative duration %s", c.Runtime.Timeout))
	}
	if err := c.Log.Level.Validate(); err != nil {
		field("log.level", err)
	}

	for name, patterns := range map[string][]string{
		"runtime.exclude":   c.Runtime.Exclude,
		"libraries.exclude": c.Libraries.Exclude,
		"data.include":      c.Data.Include,
		"data.exclude":      c.Data.Exclude,
	} {
		if err := exclude.New(patterns...).Validate(); err != nil {
			field(name, err)
		}
	}

	if len(errs) > 0 {
		// Map iteration above is unordered.
		slices.SortStableFunc(errs, func(a, b error) int {
			return strings.Compare(a.(*FieldError).Field, b.(*FieldError).Field)
		})
		return &InvalidConfigError{FieldErrors: errs}
	}
	return nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid recipe: %s", strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() []error {
	return append([]error{ErrInvalidConfig}, e.FieldErrors...)
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return e.Field + ": " + e.Err.Error()
}

// Unwrap returns the underlying problem.
func (e *FieldError) Unwrap() error { return e.Err }
