// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

// MaxRecipeSize bounds the recipe files accepted by the loader.
const MaxRecipeSize = 1 << 20

// decodeRecipe validates data against #Recipe and decodes it to a map for
// merging into Viper. Fields are optional, so values need not be concrete.
func decodeRecipe(data []byte, filename string) (map[string]any, error) {
	if len(data) > MaxRecipeSize {
		return nil, fmt.Errorf("%s: file size %d bytes exceeds maximum %d bytes", filename, len(data), MaxRecipeSize)
	}

	ctx := cuecontext.New()
	schemaValue := ctx.CompileString(recipeSchema)
	if schemaValue.Err() != nil {
		return nil, fmt.Errorf("internal error: failed to compile recipe schema: %w", schemaValue.Err())
	}

	userValue := ctx.CompileBytes(data, cue.Filename(filename))
	if userValue.Err() != nil {
		return nil, formatCUEError(userValue.Err(), filename)
	}

	unified := schemaValue.LookupPath(cue.ParsePath("#Recipe")).Unify(userValue)
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, formatCUEError(err, filename)
	}

	var recipe map[string]any
	if err := unified.Decode(&recipe); err != nil {
		return nil, formatCUEError(err, filename)
	}
	return recipe, nil
}

// formatCUEError renders CUE errors as "<file>: <json-path>: <message>",
// one line per error.
func formatCUEError(err error, filename string) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return fmt.Errorf("%s: %w", filename, err)
	}

	lines := make([]string, 0, len(errs))
	for _, e := range errs {
		path := formatPath(cueerrors.Path(e))
		msg := e.Error()
		if path != "" && strings.HasPrefix(msg, path) {
			msg = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(msg, path), ":"))
		}
		if path != "" {
			msg = path + ": " + msg
		}
		lines = append(lines, msg)
	}

	if len(lines) == 1 {
		return fmt.Errorf("%s: %s", filename, lines[0])
	}
	return fmt.Errorf("%s: validation failed:\n  %s", filename, strings.Join(lines, "\n  "))
}

// formatPath turns ["data", "include", "0"] into "data.include[0]".
func formatPath(path []string) string {
	var b strings.Builder
	for i, part := range path {
		if i > 0 && isIndex(part) {
			b.WriteString("[" + part + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}

func isIndex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
