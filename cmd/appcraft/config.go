// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/config"
	"github.com/appcraft/appcraft/internal/issue"
)

// newConfigCommand creates the `appcraft config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage build recipes",
		Long: `Manage build recipes.

A recipe is a CUE file, ` + config.RecipeFileName + ` in the working directory unless
--recipe is given. Any value can be overridden from the environment with the
` + config.EnvPrefix + `_ prefix, e.g. ` + config.EnvPrefix + `_APP_EXEC=usr/bin/app.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the resolved recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.renderError(cmd, flags, showConfig(cmd.Context(), app, flags))
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create a starter recipe",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.renderError(cmd, flags, initConfig(app, flags))
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := app.loadRecipe(ctx, flags)
	if err != nil {
		return err
	}

	fmt.Fprintln(app.stdout, TitleStyle.Render("Current Recipe"))
	source := SubtitleStyle.Render("(using defaults)")
	if cfg.Source != "" {
		source = cfg.Source
	}
	fmt.Fprintf(app.stdout, "%s %s\n\n", KeyStyle.Render("Recipe file:"), source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))

	var ice *config.InvalidConfigError
	if err := cfg.Validate(); errors.As(err, &ice) {
		fmt.Fprintln(app.stdout, sectionStyle.Render("Problems"))
		for _, fe := range ice.FieldErrors {
			fmt.Fprintf(app.stdout, "  %s %s\n", WarningStyle.Render("!"), fe)
		}
	}
	return nil
}

func initConfig(app *App, flags *rootFlags) error {
	path := flags.recipe
	if path == "" {
		path = config.RecipeFileName
	}
	if err := config.WriteDefaultRecipe(path); err != nil {
		ec := issue.NewErrorContext().
			WithOperation("create recipe").
			WithResource(path)
		if errors.Is(err, config.ErrRecipeExists) {
			ec = ec.WithSuggestion("Edit the existing recipe or pass --recipe with a new path")
		}
		return ec.Wrap(err).BuildError()
	}
	fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), path)
	fmt.Fprintln(app.stdout, SubtitleStyle.Render("Set app.exec to the AppDir-relative path of your executable, then run 'appcraft build'."))
	return nil
}
