// SPDX-License-Identifier: MPL-2.0

package elfutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/appcraft/appcraft/internal/testutil"
)

func TestIsELF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content []byte
		want    bool
	}{
		{name: "elf magic", content: []byte{0x7f, 'E', 'L', 'F', 2, 1}, want: true},
		{name: "exact magic only", content: []byte{0x7f, 'E', 'L', 'F'}, want: true},
		{name: "shell script", content: []byte("#!/bin/sh\necho hi\n"), want: false},
		{name: "empty file", content: nil, want: false},
		{name: "shorter than magic", content: []byte{0x7f, 'E', 'L'}, want: false},
		{name: "wrong case", content: []byte{0x7f, 'e', 'l', 'f'}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "file")
			testutil.MustWriteFile(t, path, tt.content, 0o644)

			got, err := IsELF(path)
			if err != nil {
				t.Fatalf("IsELF() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("IsELF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsELF_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := IsELF(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("IsELF(missing) error = %v, want ErrNotExist", err)
	}
}

func TestReadArch(t *testing.T) {
	t.Parallel()

	tests := []struct {
		machine byte
		want    string
	}{
		{0x3E, ArchX86_64},
		{0xB7, ArchAarch64},
		{0x03, ArchI386},
		{0x28, ArchGnueabihf},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "bin")
			testutil.WriteELFHeader(t, path, tt.machine, 0o755)

			got, err := ReadArch(path)
			if err != nil {
				t.Fatalf("ReadArch() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ReadArch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadArch_Unknown(t *testing.T) {
	t.Parallel()

	for _, machine := range []byte{0x00, 0x08, 0xF3, 0x15} {
		path := filepath.Join(t.TempDir(), "bin")
		testutil.WriteELFHeader(t, path, machine, 0o755)

		_, err := ReadArch(path)
		if !errors.Is(err, ErrUnknownArchitecture) {
			t.Fatalf("ReadArch(0x%02x) error = %v, want ErrUnknownArchitecture", machine, err)
		}

		var archErr *UnknownArchitectureError
		if !errors.As(err, &archErr) {
			t.Fatalf("error is not *UnknownArchitectureError: %T", err)
		}
		hexByte := fmt.Sprintf("%02x", machine)
		if !strings.Contains(err.Error(), hexByte) {
			t.Errorf("error %q does not contain byte %q", err, hexByte)
		}
		if !strings.Contains(err.Error(), path) {
			t.Errorf("error %q does not contain path %q", err, path)
		}
	}
}

func TestReadArch_TruncatedHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short")
	testutil.MustWriteFile(t, path, []byte{0x7f, 'E', 'L', 'F'}, 0o644)

	_, err := ReadArch(path)
	if !errors.Is(err, ErrUnknownArchitecture) {
		t.Fatalf("ReadArch(short) error = %v, want ErrUnknownArchitecture", err)
	}
}

func TestLibraryTriplet(t *testing.T) {
	t.Parallel()

	if got := LibraryTriplet(ArchX86_64); got != "x86_64-linux-gnu" {
		t.Errorf("LibraryTriplet(x86_64) = %q", got)
	}
	if got := LibraryTriplet(ArchGnueabihf); got != "arm-linux-gnueabihf" {
		t.Errorf("LibraryTriplet(gnueabihf) = %q", got)
	}
	if got := LibraryTriplet("riscv64"); got != "" {
		t.Errorf("LibraryTriplet(riscv64) = %q, want empty", got)
	}
}

func TestSetPermissionsRXAll(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "lib.so")
	testutil.MustWriteFile(t, path, []byte("x"), 0o600)

	if err := SetPermissionsRXAll(path); err != nil {
		t.Fatalf("SetPermissionsRXAll() error = %v", err)
	}
	st, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := st.Mode().Perm(); got != 0o755 {
		t.Errorf("mode = %o, want 755", got)
	}
}
