// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/appcraft/appcraft/internal/issue"
)

const (
	// AppName is the application name.
	AppName = "appcraft"
	// RecipeFileName is the recipe looked up when none is given.
	RecipeFileName = "appcraft.cue"
	// EnvPrefix prefixes environment overrides.
	EnvPrefix = "APPCRAFT"
)

//go:embed recipe_schema.cue
var recipeSchema string

// loadWithOptions merges defaults, the recipe file and environment
// overrides. A missing default recipe is not an error; a missing explicit one
// is.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load recipe canceled: %w", ctx.Err())
	default:
	}

	v := newViper()

	path := opts.RecipePath
	if path == "" {
		path = filepath.Join(opts.BaseDir, RecipeFileName)
		if !fileExists(path) {
			path = ""
		}
	} else if !fileExists(path) {
		return nil, issue.NewErrorContext().
			WithOperation("load recipe").
			WithResource(path).
			WithSuggestion("Verify the file path is correct").
			WithSuggestion("Run 'appcraft config init' to create a starter recipe").
			Wrap(fmt.Errorf("%w: %s", ErrRecipeNotFound, path)).
			BuildError()
	}

	var env map[string]string
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve recipe path: %w", err)
		}
		path = abs

		recipe, err := loadCUEIntoViper(v, path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load recipe").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the values match the recipe schema, see 'appcraft config show'").
				Wrap(err).
				BuildError()
		}
		env = rawEnv(recipe)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse recipe: %w", err)
	}
	// Viper lowercases map keys, which would mangle variable names.
	if env != nil {
		cfg.Runtime.Env = env
	}
	cfg.Source = path
	cfg.AppDir.Path = cfg.ResolvePath(cfg.AppDir.Path)
	if cfg.Runtime.EnvFile != "" {
		cfg.Runtime.EnvFile = cfg.ResolvePath(cfg.Runtime.EnvFile)
	}
	return &cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()

	d := DefaultConfig()
	v.SetDefault("appdir.path", d.AppDir.Path)
	v.SetDefault("app.exec", d.App.Exec)
	v.SetDefault("app.args", d.App.Args)
	v.SetDefault("drivers", d.Drivers)
	v.SetDefault("runtime.enabled", d.Runtime.Enabled)
	v.SetDefault("runtime.args", d.Runtime.Args)
	v.SetDefault("runtime.env", d.Runtime.Env)
	v.SetDefault("runtime.env_file", d.Runtime.EnvFile)
	v.SetDefault("runtime.timeout", d.Runtime.Timeout)
	v.SetDefault("runtime.scratch_prefix", d.Runtime.ScratchPrefix)
	v.SetDefault("runtime.exclude", d.Runtime.Exclude)
	v.SetDefault("libraries.search_paths", d.Libraries.SearchPaths)
	v.SetDefault("libraries.exclude", d.Libraries.Exclude)
	v.SetDefault("libraries.patch_rpath", d.Libraries.PatchRPath)
	v.SetDefault("data.include", d.Data.Include)
	v.SetDefault("data.exclude", d.Data.Exclude)
	v.SetDefault("log.level", string(d.Log.Level))

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// loadCUEIntoViper validates the recipe at path and merges it into v. The
// decoded map is returned for fields Viper cannot carry losslessly.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipe: %w", err)
	}
	recipe, err := decodeRecipe(data, path)
	if err != nil {
		return nil, err
	}
	if err := v.MergeConfigMap(recipe); err != nil {
		return nil, fmt.Errorf("failed to merge recipe: %w", err)
	}
	return recipe, nil
}

func rawEnv(recipe map[string]any) map[string]string {
	runtime, ok := recipe["runtime"].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := runtime["env"].(map[string]any)
	if !ok {
		return nil
	}
	env := make(map[string]string, len(raw))
	for k, val := range raw {
		if s, ok := val.(string); ok {
			env[k] = s
		}
	}
	return env
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
