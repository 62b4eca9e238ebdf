// SPDX-License-Identifier: MPL-2.0

package appdir

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/appcraft/appcraft/internal/elfutil"
)

type (
	// Dependency is a host file the bundle needs.
	Dependency interface {
		// Source is the absolute host path; it identifies the dependency.
		Source() string
		// Deploy materializes the dependency inside the AppDir.
		Deploy(a *AppDir) error
	}

	// FileDependency copies one file into the AppDir at its mirrored path.
	// A source already inside the AppDir is deployed in place, which only
	// normalizes its permissions.
	FileDependency struct {
		Path string
	}
)

// NewFileDependency returns a dependency on the file at path.
func NewFileDependency(path string) *FileDependency {
	return &FileDependency{Path: filepath.Clean(path)}
}

// Source implements Dependency.
func (d *FileDependency) Source() string { return d.Path }

// Deploy implements Dependency. Symlinks are dereferenced; ELF and
// executable files become 0755, other files keep their source mode.
func (d *FileDependency) Deploy(a *AppDir) error {
	target := a.TargetPath(d.Path)
	st, err := os.Stat(d.Path)
	if err != nil {
		return fmt.Errorf("deploy %s: %w", d.Path, err)
	}

	if target != filepath.Clean(d.Path) {
		if err := copyFile(d.Path, target); err != nil {
			return fmt.Errorf("deploy %s: %w", d.Path, err)
		}
	}

	isELF, err := elfutil.IsELF(target)
	if err != nil {
		return fmt.Errorf("deploy %s: %w", d.Path, err)
	}
	if isELF || st.Mode().Perm()&0o111 != 0 {
		return elfutil.SetPermissionsRXAll(target)
	}
	if err := os.Chmod(target, st.Mode().Perm()); err != nil {
		return fmt.Errorf("deploy %s: %w", d.Path, err)
	}
	return nil
}

func copyFile(src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	// Replace rather than truncate so a read-only previous copy is not an
	// obstacle.
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := out.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(out, in)
	return err
}
