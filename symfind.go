package elfpatch

import (
	"fmt"

	"github.com/memtrace/elfpatch/internal/dynelf"
)

// FindSymbol locates the first resolvable address of name among all loaded
// modules. It runs only during registry construction, before any patching, so
// the address it captures is the genuine implementation and never a
// previously installed trampoline.
func FindSymbol(name string) (uintptr, error) {
	var found uintptr
	err := dynelf.EachModule(func(m *dynelf.Module) bool {
		dyn := m.Dynamic()
		if dyn == 0 {
			return true
		}
		st := dynelf.NewSymbolTable(dynelf.ReadDynamic(m.Base, dyn))
		addr := st.LookupAddress(name)
		if addr == 0 && st.Len() == 0 {
			// Live table is unusable without a hash table; fall back
			// to the on-disk symbol tables.
			addr = m.LookupFile(name)
		}
		if addr == 0 {
			return true
		}
		found = followIndirect(addr)
		return false
	})
	if err != nil {
		return 0, err
	}
	if found == 0 {
		return 0, fmt.Errorf("%s: %w", name, ErrSymbolNotFound)
	}
	return found, nil
}
