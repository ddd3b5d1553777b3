package dynelf

import (
	"debug/elf"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unsafe"
)

const mapsPath = "/proc/self/maps"

// Module describes one ELF object mapped into the current process.
type Module struct {
	// Path is the object's load path and its identity during a sweep.
	Path string
	// Base is the relocation bias added to the object's virtual addresses.
	// It is zero for a fixed-position executable.
	Base uintptr

	start uintptr
	progs []elf.Prog64
}

// LoadedModules enumerates the ELF objects currently mapped into the process,
// one entry per distinct load path. Only the first mapping of each path is
// examined; anonymous and pseudo mappings ([vdso], [heap], ...) carry no
// usable ELF header mapping and are skipped.
func LoadedModules() ([]*Module, error) {
	raw, err := os.ReadFile(mapsPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", mapsPath, err)
	}
	seen := make(map[string]struct{})
	var mods []*Module
	for _, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 6 {
			continue
		}
		path := strings.Join(fields[5:], " ")
		path = strings.TrimSuffix(path, " (deleted)")
		if !strings.HasPrefix(path, "/") {
			continue
		}
		if _, ok := seen[path]; ok {
			continue
		}
		seen[path] = struct{}{}
		if !strings.Contains(fields[1], "r") {
			continue
		}
		if off, err := strconv.ParseUint(fields[2], 16, 64); err != nil || off != 0 {
			continue
		}
		startHex, _, ok := strings.Cut(fields[0], "-")
		if !ok {
			continue
		}
		start, err := strconv.ParseUint(startHex, 16, 64)
		if err != nil {
			continue
		}
		m, err := moduleAt(uintptr(start), path)
		if err != nil {
			// Not every file mapping is an ELF object.
			continue
		}
		mods = append(mods, m)
	}
	return mods, nil
}

// EachModule invokes fn once per loaded module until fn returns false.
func EachModule(fn func(m *Module) bool) error {
	mods, err := LoadedModules()
	if err != nil {
		return err
	}
	for _, m := range mods {
		if !fn(m) {
			break
		}
	}
	return nil
}

func moduleAt(start uintptr, path string) (*Module, error) {
	ident := unsafe.Slice((*byte)(unsafe.Pointer(start)), elf.EI_NIDENT)
	if string(ident[:4]) != elf.ELFMAG {
		return nil, fmt.Errorf("%s: no ELF header at %#x", path, start)
	}
	if elf.Class(ident[elf.EI_CLASS]) != elf.ELFCLASS64 {
		return nil, fmt.Errorf("%s: not a 64-bit object", path)
	}
	hdr := (*elf.Header64)(unsafe.Pointer(start))
	base := start
	if elf.Type(hdr.Type) == elf.ET_EXEC {
		base = 0
	}
	progs := unsafe.Slice(
		(*elf.Prog64)(unsafe.Pointer(start+uintptr(hdr.Phoff))),
		int(hdr.Phnum),
	)
	return &Module{Path: path, Base: base, start: start, progs: progs}, nil
}

// Dynamic returns the absolute address of the module's dynamic section, or
// zero when the module has no PT_DYNAMIC segment.
func (m *Module) Dynamic() uintptr {
	for _, p := range m.progs {
		if elf.ProgType(p.Type) == elf.PT_DYNAMIC {
			return m.Base + uintptr(p.Vaddr)
		}
	}
	return 0
}
