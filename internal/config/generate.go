// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrRecipeExists is returned when init would overwrite a recipe.
var ErrRecipeExists = errors.New("recipe already exists")

// GenerateCUE renders cfg as a recipe file.
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// appcraft build recipe\n\n")

	sb.WriteString("appdir: {\n")
	fmt.Fprintf(&sb, "\tpath: %q\n", orPlaceholder(cfg.AppDir.Path, "AppDir"))
	sb.WriteString("}\n")

	sb.WriteString("\napp: {\n")
	fmt.Fprintf(&sb, "\texec: %q\n", orPlaceholder(cfg.App.Exec, "usr/bin/app"))
	fmt.Fprintf(&sb, "\targs: %s\n", cueList(cfg.App.Args))
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\ndrivers: %s\n", cueList(cfg.Drivers))

	sb.WriteString("\nruntime: {\n")
	fmt.Fprintf(&sb, "\tenabled: %v\n", cfg.Runtime.Enabled)
	fmt.Fprintf(&sb, "\targs: %s\n", cueList(cfg.Runtime.Args))
	if len(cfg.Runtime.Env) > 0 {
		sb.WriteString("\tenv: {\n")
		for _, kv := range mustEnviron(cfg.Runtime) {
			k, v, _ := strings.Cut(kv, "=")
			fmt.Fprintf(&sb, "\t\t%s: %q\n", k, v)
		}
		sb.WriteString("\t}\n")
	}
	if cfg.Runtime.EnvFile != "" {
		fmt.Fprintf(&sb, "\tenv_file: %q\n", cfg.Runtime.EnvFile)
	}
	fmt.Fprintf(&sb, "\ttimeout: %q\n", cfg.Runtime.Timeout.String())
	fmt.Fprintf(&sb, "\tscratch_prefix: %q\n", cfg.Runtime.ScratchPrefix)
	fmt.Fprintf(&sb, "\texclude: %s\n", cueList(cfg.Runtime.Exclude))
	sb.WriteString("}\n")

	sb.WriteString("\nlibraries: {\n")
	fmt.Fprintf(&sb, "\tsearch_paths: %s\n", cueList(cfg.Libraries.SearchPaths))
	fmt.Fprintf(&sb, "\texclude: %s\n", cueList(cfg.Libraries.Exclude))
	fmt.Fprintf(&sb, "\tpatch_rpath: %v\n", cfg.Libraries.PatchRPath)
	sb.WriteString("}\n")

	sb.WriteString("\ndata: {\n")
	fmt.Fprintf(&sb, "\tinclude: %s\n", cueList(cfg.Data.Include))
	fmt.Fprintf(&sb, "\texclude: %s\n", cueList(cfg.Data.Exclude))
	sb.WriteString("}\n")

	sb.WriteString("\nlog: {\n")
	fmt.Fprintf(&sb, "\tlevel: %q\n", string(cfg.Log.Level))
	sb.WriteString("}\n")

	return sb.String()
}

// WriteDefaultRecipe writes a starter recipe to path unless one exists.
func WriteDefaultRecipe(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: %s", ErrRecipeExists, path)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write recipe: %w", err)
	}
	return nil
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func orPlaceholder(s, placeholder string) string {
	if s == "" {
		return placeholder
	}
	return s
}

// mustEnviron lists runtime.env alone in key order.
func mustEnviron(r RuntimeConfig) []string {
	r.EnvFile = ""
	env, _ := r.Environ(nil)
	return env
}
