// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/appcraft/appcraft/internal/logging"
)

func validConfig() *Config {
	cfg := DefaultConfig()
	cfg.AppDir.Path = "/build/AppDir"
	cfg.App.Exec = "usr/bin/app"
	return cfg
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
		field   string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing appdir", mutate: func(c *Config) { c.AppDir.Path = " " }, wantErr: ErrMissingField, field: "appdir.path"},
		{name: "missing exec", mutate: func(c *Config) { c.App.Exec = "" }, wantErr: ErrMissingField, field: "app.exec"},
		{name: "unknown driver", mutate: func(c *Config) { c.Drivers = []string{"pip"} }, wantErr: ErrUnknownDriver, field: "drivers"},
		{name: "duplicate driver", mutate: func(c *Config) { c.Drivers = []string{"data", "data"} }, wantErr: ErrDuplicateDriver, field: "drivers"},
		{name: "bad level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: logging.ErrInvalidLevel, field: "log.level"},
		{name: "bad glob", mutate: func(c *Config) { c.Runtime.Exclude = []string{"/a/[b"} }, field: "runtime.exclude"},
		{name: "negative timeout", mutate: func(c *Config) { c.Runtime.Timeout = -1 }, field: "runtime.timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("Validate() error = %v, want ErrInvalidConfig", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.field) {
				t.Errorf("error %q does not name %s", err, tt.field)
			}
		})
	}
}

func TestConfig_ValidateReportsAllFields(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	err := cfg.Validate()

	var ice *InvalidConfigError
	if !errors.As(err, &ice) {
		t.Fatalf("Validate() error = %v, want InvalidConfigError", err)
	}
	if len(ice.FieldErrors) != 2 {
		t.Errorf("FieldErrors = %v, want appdir.path and app.exec", ice.FieldErrors)
	}
}

func TestConfig_HasDriver(t *testing.T) {
	t.Parallel()

	cfg := validConfig()
	cfg.Drivers = []string{DriverRuntime, DriverLibraries}
	if !cfg.HasDriver(DriverLibraries) || cfg.HasDriver(DriverData) {
		t.Error("HasDriver does not follow the drivers list")
	}
	cfg.Runtime.Enabled = false
	if cfg.HasDriver(DriverRuntime) {
		t.Error("disabled runtime still reported")
	}
}

func TestConfig_ResolvePath(t *testing.T) {
	t.Parallel()

	cfg := &Config{Source: "/recipes/app/appcraft.cue"}
	if got := cfg.ResolvePath("AppDir"); got != filepath.FromSlash("/recipes/app/AppDir") {
		t.Errorf("ResolvePath(relative) = %q", got)
	}
	if got := cfg.ResolvePath("/abs"); got != "/abs" {
		t.Errorf("ResolvePath(absolute) = %q", got)
	}
	if got := cfg.ResolvePath(""); got != "" {
		t.Errorf("ResolvePath(empty) = %q", got)
	}
}
