// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"debug/elf"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// ELFHeader returns a 64-byte little-endian ELF64 header whose e_machine
// low byte is machine. It is enough for magic and architecture checks but
// not for debug/elf parsing.
func ELFHeader(machine byte) []byte {
	hdr := make([]byte, 64)
	copy(hdr, []byte{0x7f, 'E', 'L', 'F'})
	hdr[4] = byte(elf.ELFCLASS64)
	hdr[5] = byte(elf.ELFDATA2LSB)
	hdr[6] = byte(elf.EV_CURRENT)
	hdr[16] = byte(elf.ET_DYN)
	hdr[18] = machine
	return hdr
}

// WriteELFHeader writes ELFHeader(machine) to path with the given mode.
func WriteELFHeader(t testing.TB, path string, machine byte, perm os.FileMode) {
	t.Helper()
	MustWriteFile(t, path, ELFHeader(machine), perm)
}

// DynamicELF returns the path of a dynamically linked executable on the host
// together with its interpreter, skipping the test when none is available.
func DynamicELF(t testing.TB) (path, interpreter string) {
	t.Helper()
	for _, name := range []string{"sh", "ls", "true"} {
		p, err := exec.LookPath(name)
		if err != nil {
			continue
		}
		f, err := elf.Open(p)
		if err != nil {
			continue
		}
		for _, prog := range f.Progs {
			if prog.Type != elf.PT_INTERP {
				continue
			}
			buf := make([]byte, prog.Filesz)
			if _, err := prog.ReadAt(buf, 0); err == nil {
				interpreter = strings.TrimRight(string(buf), "\x00")
			}
		}
		_ = f.Close()
		if interpreter != "" {
			return p, interpreter
		}
	}
	t.Skip("no dynamically linked host binary available")
	return "", ""
}
