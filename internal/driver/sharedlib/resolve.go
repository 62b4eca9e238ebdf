// SPDX-License-Identifier: MPL-2.0

package sharedlib

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/appcraft/appcraft/internal/appdir"
	"github.com/appcraft/appcraft/internal/elfutil"
)

// resolver finds the libraries needed by one ELF file.
type resolver struct {
	driver *Driver
	path   string
	info   *elfutil.Info
	appDir *appdir.AppDir

	defaults []string
}

// resolve returns the first existing file called name in the search order:
// RPATH and RUNPATH, AppDir library directories, configured search paths,
// architecture defaults. An empty result means not found.
func (r *resolver) resolve(name string) (string, error) {
	if strings.Contains(name, "/") {
		if isFile(name) {
			return name, nil
		}
		return "", nil
	}

	origin := filepath.Dir(r.path)
	var dirs []string
	for _, dir := range append(append([]string(nil), r.info.RPath...), r.info.RunPath...) {
		dirs = append(dirs, expandOrigin(dir, origin))
	}
	dirs = append(dirs, r.appDir.LibraryDirs()...)
	dirs = append(dirs, r.driver.opts.SearchPaths...)
	if lib := lookIn(dirs, name); lib != "" {
		return lib, nil
	}

	defaults, err := r.defaultDirs()
	if err != nil {
		return "", err
	}
	return lookIn(defaults, name), nil
}

// defaultDirs are derived from the architecture of the inspected file.
func (r *resolver) defaultDirs() ([]string, error) {
	if r.defaults != nil {
		return r.defaults, nil
	}
	arch, err := elfutil.ReadArch(r.path)
	if err != nil {
		return nil, err
	}
	triplet := elfutil.LibraryTriplet(arch)
	r.defaults = []string{"/lib/" + triplet, "/usr/lib/" + triplet}
	r.defaults = append(r.defaults, genericLibDirs...)
	return r.defaults, nil
}

func expandOrigin(dir, origin string) string {
	dir = strings.ReplaceAll(dir, "${ORIGIN}", origin)
	return strings.ReplaceAll(dir, "$ORIGIN", origin)
}

func lookIn(dirs []string, name string) string {
	for _, dir := range dirs {
		candidate := filepath.Join(dir, name)
		if isFile(candidate) {
			return candidate
		}
	}
	return ""
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
