// SPDX-License-Identifier: MPL-2.0

package config

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

// Environ returns the environment of the traced run: base, then the dotenv
// file, then runtime.env, later sources overriding earlier ones. An env_file
// ending in "?" may be missing.
func (r RuntimeConfig) Environ(base []string) ([]string, error) {
	env := make(map[string]string, len(base))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}

	if r.EnvFile != "" {
		fromFile, err := readEnvFile(r.EnvFile)
		if err != nil {
			return nil, err
		}
		maps.Copy(env, fromFile)
	}
	maps.Copy(env, r.Env)

	out := make([]string, 0, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		out = append(out, k+"="+env[k])
	}
	return out, nil
}

func readEnvFile(path string) (map[string]string, error) {
	optional := strings.HasSuffix(path, "?")
	path = strings.TrimSuffix(path, "?")

	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read env file '%s': %w", path, err)
	}
	env, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return nil, fmt.Errorf("failed to parse env file '%s': %w", path, err)
	}
	return env, nil
}
