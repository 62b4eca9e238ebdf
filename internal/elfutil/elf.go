// SPDX-License-Identifier: MPL-2.0

package elfutil

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

const (
	// ArchAarch64 is 64-bit ARM.
	ArchAarch64 = "aarch64"
	// ArchGnueabihf is 32-bit ARM, hard float.
	ArchGnueabihf = "gnueabihf"
	// ArchI386 is 32-bit x86.
	ArchI386 = "i386"
	// ArchX86_64 is 64-bit x86.
	ArchX86_64 = "x86_64"

	// machineOffset is the file offset of the low byte of e_machine.
	machineOffset = 18

	// permRXAll is read+execute for everyone plus owner write.
	permRXAll os.FileMode = 0o755
)

var (
	// ErrUnknownArchitecture is the sentinel error wrapped by UnknownArchitectureError.
	ErrUnknownArchitecture = errors.New("unknown instruction set architecture")

	elfMagic = []byte{0x7f, 'E', 'L', 'F'}

	knownArchitectures = map[byte]string{
		0xB7: ArchAarch64,
		0x28: ArchGnueabihf,
		0x03: ArchI386,
		0x3E: ArchX86_64,
	}

	libraryTriplets = map[string]string{
		ArchAarch64:   "aarch64-linux-gnu",
		ArchGnueabihf: "arm-linux-gnueabihf",
		ArchI386:      "i386-linux-gnu",
		ArchX86_64:    "x86_64-linux-gnu",
	}
)

// UnknownArchitectureError is returned by ReadArch when the e_machine byte is
// not in the architecture table. Machine is empty when the file is too short
// to carry one.
type UnknownArchitectureError struct {
	Machine []byte
	Path    string
}

// Error implements the error interface.
func (e *UnknownArchitectureError) Error() string {
	return fmt.Sprintf("unknown instruction set architecture `%s` on: %s", hex.EncodeToString(e.Machine), e.Path)
}

// Unwrap returns ErrUnknownArchitecture for errors.Is.
func (e *UnknownArchitectureError) Unwrap() error { return ErrUnknownArchitecture }

// IsELF reports whether the file at path starts with the ELF magic bytes.
// Files shorter than the magic are not ELF.
func IsELF(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	var buf [4]byte
	if _, err := io.ReadFull(f, buf[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	return bytes.Equal(buf[:], elfMagic), nil
}

// ReadArch returns the canonical architecture name declared by the ELF
// header of path. An unmapped or missing e_machine byte is an
// *UnknownArchitectureError, never a default.
func ReadArch(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	machine := make([]byte, 1)
	n, err := f.ReadAt(machine, machineOffset)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	if n == 1 {
		if arch, ok := knownArchitectures[machine[0]]; ok {
			return arch, nil
		}
	}
	return "", &UnknownArchitectureError{Machine: machine[:n], Path: path}
}

// LibraryTriplet returns the Debian multiarch directory name for arch, or ""
// for an unknown architecture.
func LibraryTriplet(arch string) string {
	return libraryTriplets[arch]
}

// SetPermissionsRXAll makes path readable and executable by everyone and
// writable by its owner, so deployed binaries stay runnable and can still be
// overwritten by later steps.
func SetPermissionsRXAll(path string) error {
	if err := os.Chmod(path, permRXAll); err != nil {
		return fmt.Errorf("set permissions on %s: %w", path, err)
	}
	return nil
}
