// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/appcraft/appcraft/internal/elfutil"
	"github.com/appcraft/appcraft/internal/exttool"
)

// newInspectCommand creates the `appcraft inspect` command.
func newInspectCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>...",
		Short: "Show the ELF metadata appcraft uses to bundle a file",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInspect(cmd.Context(), app, args)
		},
	}
}

func runInspect(ctx context.Context, app *App, paths []string) error {
	in := elfutil.NewInspector(len(paths))
	var symbols elfutil.SymbolLister
	if path := app.optionalTool(exttool.ReadelfName); path != "" {
		symbols = &exttool.Readelf{Path: path, Runner: app.Runner}
	}

	failed := 0
	for i, path := range paths {
		if i > 0 {
			fmt.Fprintln(app.stdout)
		}
		if err := inspectFile(ctx, app.stdout, in, symbols, path); err != nil {
			fmt.Fprintf(app.stdout, "  %s %s\n", ErrorStyle.Render("error:"), err)
			failed++
		}
	}
	if failed > 0 {
		return &ExitError{Code: 1, Err: fmt.Errorf("%d of %d files could not be inspected", failed, len(paths))}
	}
	return nil
}

func inspectFile(ctx context.Context, w io.Writer, in *elfutil.Inspector, symbols elfutil.SymbolLister, path string) error {
	fmt.Fprintln(w, TitleStyle.Render(path))

	isELF, err := elfutil.IsELF(path)
	if err != nil {
		return err
	}
	field(w, "ELF", yesNo(isELF))
	if !isELF {
		return nil
	}

	if arch, err := elfutil.ReadArch(path); err != nil {
		field(w, "Architecture", WarningStyle.Render(err.Error()))
	} else {
		if triplet := elfutil.LibraryTriplet(arch); triplet != "" {
			arch += " (" + triplet + ")"
		}
		field(w, "Architecture", arch)
	}

	info, err := in.Inspect(path)
	if err != nil {
		return err
	}
	field(w, "SONAME", orNone(info.SONAME))
	field(w, "Interpreter", orNone(info.Interpreter))
	field(w, "Needed", orNone(strings.Join(info.Needed, ", ")))
	if rpath := append(append([]string{}, info.RPath...), info.RunPath...); len(rpath) > 0 {
		field(w, "Search path", strings.Join(rpath, ":"))
	}

	executable := SubtitleStyle.Render("unknown (readelf not found)")
	if symbols != nil {
		executable = yesNo(elfutil.IsELFExecutable(ctx, symbols, path))
	}
	field(w, "Executable", executable)
	return nil
}

func field(w io.Writer, name, value string) {
	fmt.Fprintf(w, "  %s %s\n", KeyStyle.Render(fmt.Sprintf("%-13s", name+":")), value)
}

func yesNo(b bool) string {
	if b {
		return SuccessStyle.Render("yes")
	}
	return WarningStyle.Render("no")
}

func orNone(s string) string {
	if s == "" {
		return SubtitleStyle.Render("-")
	}
	return s
}
