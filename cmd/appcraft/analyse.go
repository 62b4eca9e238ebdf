// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/config"
	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/exttool"
	"github.com/appcraft/appcraft/internal/issue"
)

// newAnalyseCommand creates the `appcraft analyse` command.
func newAnalyseCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "analyse",
		Aliases: []string{"analyze"},
		Short:   "Trace the application and list the files it needs",
		Long: `Trace the application once and list the files it opened, classified as
executables, libraries and data. Nothing is copied into the AppDir.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := runAnalyse(cmd.Context(), app, flags)
			return app.renderError(cmd, flags, err)
		},
	}
}

func runAnalyse(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, err := app.loadRecipe(ctx, flags)
	if err != nil {
		return err
	}
	if err := validateRecipe(cfg); err != nil {
		return err
	}
	logger := app.logger(cfg, flags)

	tools, err := app.requireTools(exttool.StraceName, exttool.PatchElfName)
	if err != nil {
		return err
	}

	in := elfutil.NewInspector(0)
	a, err := appdir.Open(cfg.AppDir.Path, appdir.WithInspector(in))
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("open AppDir").
			WithResource(cfg.AppDir.Path).
			WithSuggestion("Create the AppDir and install the application into it first").
			Wrap(err).
			BuildError()
	}

	opts, err := app.analyserOptions(cfg, tools, in, logger)
	if err != nil {
		return err
	}
	opts.AppDir = a
	an, err := analyser.New(opts)
	if err != nil {
		return err
	}
	res, err := an.RunAppAnalysis(ctx)
	if err != nil {
		return issue.WrapWithContext(err, "analyse application", an.BinaryPath())
	}

	renderAnalysis(app.stdout, cfg, res)
	return nil
}

func renderAnalysis(w io.Writer, cfg *config.Config, res *analyser.Result) {
	fmt.Fprintln(w, TitleStyle.Render("Runtime analysis of "+cfg.App.Exec))
	for _, group := range []struct {
		title string
		paths []string
	}{
		{"Executables", res.Executables},
		{"Libraries", res.Libraries},
		{"Data", res.Data},
	} {
		fmt.Fprintf(w, "%s %s\n", sectionStyle.Render(group.title), SubtitleStyle.Render(fmt.Sprintf("(%d)", len(group.paths))))
		if len(group.paths) == 0 {
			fmt.Fprintf(w, "  %s\n", SubtitleStyle.Render("(none)"))
			continue
		}
		for _, p := range group.paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
}
