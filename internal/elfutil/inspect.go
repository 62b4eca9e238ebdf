// SPDX-License-Identifier: MPL-2.0

package elfutil

import (
	"bytes"
	"debug/elf"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultInspectorSize bounds the number of memoized files.
const DefaultInspectorSize = 4096

type (
	// Info is the dynamic-linking metadata of one ELF file.
	Info struct {
		// SONAME is the embedded shared-object name, empty for executables.
		SONAME string
		// Needed lists DT_NEEDED entries in file order.
		Needed []string
		// RPath and RunPath are the split DT_RPATH / DT_RUNPATH entries.
		RPath   []string
		RunPath []string
		// Interpreter is the PT_INTERP loader path, empty for static binaries
		// and shared objects.
		Interpreter string
		// Machine is the raw ELF machine type.
		Machine elf.Machine
	}

	// Inspector parses ELF files and memoizes the result. A cached entry is
	// reused only while the file's size and modification time are unchanged.
	// It is safe for concurrent use.
	Inspector struct {
		cache *lru.Cache[string, cachedInfo]
	}

	cachedInfo struct {
		info    *Info
		size    int64
		modTime time.Time
	}
)

// NewInspector creates an Inspector holding up to size entries. A
// non-positive size means DefaultInspectorSize.
func NewInspector(size int) *Inspector {
	if size <= 0 {
		size = DefaultInspectorSize
	}
	cache, err := lru.New[string, cachedInfo](size)
	if err != nil {
		// lru.New only fails on non-positive sizes.
		panic(err)
	}
	return &Inspector{cache: cache}
}

// Inspect returns the metadata of the ELF file at path. Non-ELF files are an
// error; use IsELF first when the kind of file is unknown.
func (in *Inspector) Inspect(path string) (*Info, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if c, ok := in.cache.Get(path); ok && c.size == st.Size() && c.modTime.Equal(st.ModTime()) {
		return c.info, nil
	}

	info, err := readInfo(path)
	if err != nil {
		return nil, err
	}
	in.cache.Add(path, cachedInfo{info: info, size: st.Size(), modTime: st.ModTime()})
	return info, nil
}

// HasSONAME reports whether path is an ELF file exposing a SONAME. Anything
// unreadable or non-ELF is not a shared library.
func (in *Inspector) HasSONAME(path string) bool {
	if ok, err := IsELF(path); err != nil || !ok {
		return false
	}
	info, err := in.Inspect(path)
	if err != nil {
		return false
	}
	return info.SONAME != ""
}

func readInfo(path string) (*Info, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("parse ELF %s: %w", path, err)
	}
	defer f.Close()

	info := &Info{Machine: f.Machine}

	sonames, err := f.DynString(elf.DT_SONAME)
	if err != nil {
		return nil, fmt.Errorf("read SONAME of %s: %w", path, err)
	}
	if len(sonames) > 0 {
		info.SONAME = sonames[0]
	}

	if info.Needed, err = f.ImportedLibraries(); err != nil {
		return nil, fmt.Errorf("read NEEDED of %s: %w", path, err)
	}

	rpath, err := f.DynString(elf.DT_RPATH)
	if err != nil {
		return nil, fmt.Errorf("read RPATH of %s: %w", path, err)
	}
	info.RPath = splitPathList(rpath)

	runpath, err := f.DynString(elf.DT_RUNPATH)
	if err != nil {
		return nil, fmt.Errorf("read RUNPATH of %s: %w", path, err)
	}
	info.RunPath = splitPathList(runpath)

	for _, p := range f.Progs {
		if p.Type != elf.PT_INTERP {
			continue
		}
		data, err := io.ReadAll(p.Open())
		if err != nil {
			return nil, fmt.Errorf("read interpreter of %s: %w", path, err)
		}
		info.Interpreter = string(bytes.TrimRight(data, "\x00"))
		break
	}

	return info, nil
}

func splitPathList(entries []string) []string {
	var out []string
	for _, e := range entries {
		for _, p := range strings.Split(e, ":") {
			if p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}
