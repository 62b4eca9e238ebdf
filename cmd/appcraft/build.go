// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/builder"
	"github.com/appcraft/appcraft/internal/config"
	"github.com/appcraft/appcraft/internal/issue"
)

// newBuildCommand creates the `appcraft build` command.
func newBuildCommand(app *App, flags *rootFlags) *cobra.Command {
	var appDirPath string

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Bundle the application and its dependencies into an AppDir",
		Long: `Bundle the application and its dependencies into an AppDir.

The recipe names the AppDir and its primary executable. Every enabled driver
contributes files: "runtime" traces the application with strace, "libraries"
resolves ELF shared libraries and "data" copies declared data files. The
AppRun launcher is written last.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runBuild(cmd.Context(), app, flags, appDirPath)
			return app.renderError(cmd, flags, err)
		},
	}
	cmd.Flags().StringVar(&appDirPath, "appdir", "", "AppDir root (overrides appdir.path from the recipe)")
	return cmd
}

func runBuild(ctx context.Context, app *App, flags *rootFlags, appDirPath string) error {
	cfg, err := app.loadRecipe(ctx, flags)
	if err != nil {
		return err
	}
	if appDirPath != "" {
		abs, err := filepath.Abs(appDirPath)
		if err != nil {
			return fmt.Errorf("resolve --appdir: %w", err)
		}
		cfg.AppDir.Path = abs
	}
	if err := validateRecipe(cfg); err != nil {
		return err
	}

	logger := app.logger(cfg, flags)
	p, err := app.newPipeline(cfg, logger)
	if err != nil {
		return err
	}

	b, err := builder.New(builder.Options{
		AppDirPath: cfg.AppDir.Path,
		Exec:       cfg.App.Exec,
		Args:       cfg.App.Args,
		Registry:   p.registry,
		Symbols:    p.symbols,
		OpenAppDir: func(path string) (*appdir.AppDir, error) {
			return appdir.Open(path, appdir.WithInspector(p.inspector))
		},
		Logger: logger,
	})
	if err != nil {
		return err
	}

	report, err := b.Build(ctx)
	if err != nil {
		return err
	}
	var analysis *analyser.Result
	if p.runtime != nil {
		analysis = p.runtime.Result()
	}
	renderBuildReport(app.stdout, report, analysis, flags.verbose)
	return nil
}

func validateRecipe(cfg *config.Config) error {
	err := cfg.Validate()
	if err == nil {
		return nil
	}
	source := cfg.Source
	if source == "" {
		source = "(defaults)"
	}
	return issue.NewErrorContext().
		WithOperation("validate recipe").
		WithResource(source).
		WithSuggestion("Set appdir.path and app.exec in " + config.RecipeFileName).
		WithSuggestion("Run 'appcraft config init' to create a starter recipe").
		Wrap(err).
		BuildError()
}

// renderBuildReport prints the build summary. analysis is nil when the
// runtime driver did not run.
func renderBuildReport(w io.Writer, report *builder.Report, analysis *analyser.Result, verbose bool) {
	a := report.AppDir
	fmt.Fprintln(w, SuccessStyle.Render("✓ ")+TitleStyle.Render("AppDir ready"))
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("AppDir:"), a.Path())
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render("Launcher:"), a.AppRunPath())
	fmt.Fprintf(w, "%s %d\n", KeyStyle.Render("Deployed files:"), len(report.Deployed))

	if !verbose {
		return
	}
	if analysis != nil {
		fmt.Fprintln(w, sectionStyle.Render("Runtime analysis"))
		fmt.Fprintf(w, "  %s %d\n", KeyStyle.Render("Traced files:"), len(analysis.Files()))
		fmt.Fprintf(w, "  %s %d\n", KeyStyle.Render("Executables:"), len(analysis.Executables))
		fmt.Fprintf(w, "  %s %d\n", KeyStyle.Render("Libraries:"), len(analysis.Libraries))
		fmt.Fprintf(w, "  %s %d\n", KeyStyle.Render("Data:"), len(analysis.Data))
	}
	if len(report.Deployed) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Deployed"))
		for _, src := range report.Deployed {
			fmt.Fprintf(w, "  %s\n", src)
		}
	}
	if run := a.AppRun(); run != nil && len(run.Env) > 0 {
		fmt.Fprintln(w, sectionStyle.Render("Environment"))
		for _, v := range run.Env {
			fmt.Fprintf(w, "  %s=%s\n", v.Name, v.Value)
		}
	}
}
