package dynelf

import (
	"debug/elf"
	"fmt"
)

// FileSymbolOffset resolves a symbol's virtual-address offset from the
// on-disk object at path. It is the fallback for live modules whose mapped
// hash tables cannot bound the in-memory symbol table.
func FileSymbolOffset(path, name string) (uintptr, error) {
	f, err := elf.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if syms, err := f.DynamicSymbols(); err == nil {
		if off, ok := matchSymbol(syms, name); ok {
			return off, nil
		}
	}
	if syms, err := f.Symbols(); err == nil {
		if off, ok := matchSymbol(syms, name); ok {
			return off, nil
		}
	}
	return 0, fmt.Errorf("symbol %s not found in %s", name, path)
}

func matchSymbol(syms []elf.Symbol, name string) (uintptr, bool) {
	for _, s := range syms {
		if s.Value == 0 || s.Section == elf.SHN_UNDEF {
			continue
		}
		if s.Name == name {
			return uintptr(s.Value), true
		}
	}
	return 0, false
}

// LookupFile resolves name through the module's on-disk symbol tables and
// returns its absolute loaded address, or zero when the file does not define
// the symbol.
func (m *Module) LookupFile(name string) uintptr {
	off, err := FileSymbolOffset(m.Path, name)
	if err != nil {
		return 0
	}
	return m.Base + off
}
