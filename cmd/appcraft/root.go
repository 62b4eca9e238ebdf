// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/config"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand creates the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "appcraft",
		Short: "Bundle Linux applications into self-contained AppDirs",
		Long: TitleStyle.Render("appcraft") + SubtitleStyle.Render(" - Bundle Linux applications into self-contained AppDirs") + `

appcraft copies an application's runtime dependencies into an AppDir and
writes an AppRun launcher that starts it from there. Dependencies are found
by tracing the application, resolving its ELF shared libraries and
collecting declared data files.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Install the application into an AppDir (e.g. make DESTDIR=AppDir install)
  2. Create a recipe with: appcraft config init
  3. Set app.exec and run: appcraft build

` + SubtitleStyle.Render("Examples:") + `
  appcraft build                 Build the AppDir described by appcraft.cue
  appcraft build --appdir out    Build into another AppDir
  appcraft analyse               Show what the application opens at runtime
  appcraft inspect AppDir/usr/bin/app
  appcraft config show           Show the resolved recipe`,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.recipe, "recipe", "", "recipe file (default is ./"+config.RecipeFileName+")")

	rootCmd.AddCommand(newBuildCommand(app, flags))
	rootCmd.AddCommand(newAnalyseCommand(app, flags))
	rootCmd.AddCommand(newInspectCommand(app))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the production App and runs the root command. It is called
// by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		os.Exit(exitCode(err))
	}
}
