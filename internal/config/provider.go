// SPDX-License-Identifier: MPL-2.0

package config

import "context"

// LoadOptions defines explicit recipe loading inputs.
type LoadOptions struct {
	// RecipePath forces loading from a specific file when set.
	RecipePath string
	// BaseDir is searched for RecipeFileName when RecipePath is empty. Empty
	// means the working directory.
	BaseDir string
}

// Provider loads recipes from explicit options.
type Provider interface {
	Load(ctx context.Context, opts LoadOptions) (*Config, error)
}

type fileProvider struct{}

// NewProvider creates a recipe provider backed by the filesystem.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads the recipe from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	return loadWithOptions(ctx, opts)
}
