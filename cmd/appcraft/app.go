// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/analyser"
	"github.com/appcraft/appcraft/internal/config"
	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/exttool"
	"github.com/appcraft/appcraft/internal/issue"
	"github.com/appcraft/appcraft/internal/logging"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App reference and
	// reaches recipes and external tools through it.
	App struct {
		Config   ConfigProvider
		Runner   exttool.Runner
		LookPath exttool.LookPathFunc
		stdout   io.Writer
		stderr   io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config   ConfigProvider
		Runner   exttool.Runner
		LookPath exttool.LookPathFunc
		Stdout   io.Writer
		Stderr   io.Writer
	}

	// ConfigProvider loads recipes using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// rootFlags holds the persistent flags shared by every subcommand.
	rootFlags struct {
		verbose bool
		recipe  string
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Runner == nil {
		deps.Runner = exttool.NewExecRunner()
	}
	if deps.LookPath == nil {
		deps.LookPath = exec.LookPath
	}

	return &App{
		Config:   deps.Config,
		Runner:   deps.Runner,
		LookPath: deps.LookPath,
		stdout:   deps.Stdout,
		stderr:   deps.Stderr,
	}, nil
}

// loadRecipe loads the recipe named by --recipe, or appcraft.cue in the
// working directory.
func (a *App) loadRecipe(ctx context.Context, flags *rootFlags) (*config.Config, error) {
	return a.Config.Load(ctx, config.LoadOptions{RecipePath: flags.recipe})
}

// logger builds the run logger. --verbose forces debug output.
func (a *App) logger(cfg *config.Config, flags *rootFlags) *slog.Logger {
	level := cfg.Log.Level
	if flags.verbose {
		level = logging.LevelDebug
	}
	return logging.New(a.stderr, level, config.AppName)
}

// requireTools resolves external tools a build cannot run without.
func (a *App) requireTools(names ...string) (map[string]string, error) {
	paths, err := exttool.Resolve(a.LookPath, names...)
	if err != nil {
		var nf *exttool.ToolNotFoundError
		resource := ""
		if errors.As(err, &nf) {
			resource = nf.Name
		}
		return nil, issue.NewErrorContext().
			WithOperation("find external tool").
			WithResource(resource).
			WithSuggestion("Install strace, patchelf and binutils with your distribution's package manager").
			WithSuggestion("Disable the runtime driver with 'runtime: enabled: false' to build without strace").
			Wrap(err).
			BuildError()
	}
	return paths, nil
}

// guideFor picks the troubleshooting guide matching err, or 0.
func guideFor(err error) issue.Id {
	switch {
	case errors.Is(err, exttool.ErrToolNotFound):
		return issue.ToolNotFoundId
	case errors.Is(err, config.ErrInvalidConfig):
		return issue.RecipeInvalidId
	case errors.Is(err, elfutil.ErrUnknownArchitecture):
		return issue.UnsupportedArchitectureId
	case errors.Is(err, analyser.ErrTraceFailed):
		return issue.TraceFailedId
	}

	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return 0
	}
	switch ae.Operation {
	case "load recipe":
		if errors.Is(err, config.ErrRecipeNotFound) {
			return issue.RecipeNotFoundId
		}
		return issue.RecipeInvalidId
	case "open AppDir":
		if errors.Is(err, fs.ErrNotExist) {
			return issue.AppDirNotFoundId
		}
	case "deploy dependency":
		return issue.DeployFailedId
	case "analyse application":
		return issue.TraceFailedId
	}
	return 0
}

// optionalTool resolves name, returning "" when it is not installed.
func (a *App) optionalTool(name string) string {
	paths, err := exttool.Resolve(a.LookPath, name)
	if err != nil {
		return ""
	}
	return paths[name]
}

// renderError prints actionable errors with their suggestions and turns them
// into an ExitError so Cobra does not print them a second time.
func (a *App) renderError(cmd *cobra.Command, flags *rootFlags, err error) error {
	if err == nil {
		return nil
	}
	var ae *issue.ActionableError
	if !errors.As(err, &ae) {
		return err
	}
	fmt.Fprintln(a.stderr, ErrorStyle.Render("Error: ")+issue.Format(err, flags.verbose))
	if guide := issue.Get(guideFor(err)); guide != nil {
		if rendered, rerr := guide.Render("auto"); rerr == nil {
			fmt.Fprint(a.stderr, rendered)
		}
	}
	cmd.SilenceErrors = true
	cmd.SilenceUsage = true
	return &ExitError{Code: 1, Err: err}
}
