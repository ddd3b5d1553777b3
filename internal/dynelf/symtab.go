package dynelf

import (
	"debug/elf"
	"unsafe"
)

// Fallback bound for string reads when DT_STRSZ is absent.
const maxSymbolName = 4096

// SymbolTable resolves dynamic-symbol indices to names and names to loaded
// addresses for one module. It is a transient view, scoped to a single scan.
type SymbolTable struct {
	d *DynInfo
	n uint32
}

// NewSymbolTable builds a symbol-table view over d. The number of symbols is
// not recorded in the dynamic section itself; it is recovered from DT_HASH
// when present, or by walking the DT_GNU_HASH chains.
func NewSymbolTable(d *DynInfo) *SymbolTable {
	return &SymbolTable{d: d, n: symbolCount(d)}
}

// Len returns the number of symbol-table entries the view can address, zero
// when the module carries no usable hash table.
func (t *SymbolTable) Len() int {
	return int(t.n)
}

// NameByIndex returns the name of the symbol at the given symbol-table index,
// or the empty string when the index cannot be resolved.
func (t *SymbolTable) NameByIndex(index uint32) string {
	if t.d.symtab == 0 {
		return ""
	}
	sym := (*elf.Sym64)(unsafe.Pointer(t.d.symtab + uintptr(index)*symSize))
	return t.str(sym.Name)
}

// LookupAddress returns the absolute loaded address of the named symbol, or
// zero when the module does not define it. Undefined entries (imports) are
// skipped so an import never shadows the real implementation.
func (t *SymbolTable) LookupAddress(name string) uintptr {
	if t.d.symtab == 0 {
		return 0
	}
	for i := uint32(1); i < t.n; i++ {
		sym := (*elf.Sym64)(unsafe.Pointer(t.d.symtab + uintptr(i)*symSize))
		if sym.Value == 0 || elf.SectionIndex(sym.Shndx) == elf.SHN_UNDEF {
			continue
		}
		if t.str(sym.Name) == name {
			return t.d.base + uintptr(sym.Value)
		}
	}
	return 0
}

func (t *SymbolTable) str(off uint32) string {
	if t.d.strtab == 0 {
		return ""
	}
	limit := t.d.strsz
	if limit == 0 {
		limit = maxSymbolName
	}
	if uintptr(off) >= limit {
		return ""
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(t.d.strtab+uintptr(off))), limit-uintptr(off))
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return ""
}

func symbolCount(d *DynInfo) uint32 {
	if d.hash != 0 {
		// DT_HASH header is [nbucket, nchain]; nchain equals the number
		// of symbol-table entries.
		h := unsafe.Slice((*uint32)(unsafe.Pointer(d.hash)), 2)
		return h[1]
	}
	if d.gnuHash != 0 {
		return gnuSymbolCount(d.gnuHash)
	}
	return 0
}

// gnuSymbolCount recovers the symbol count from a DT_GNU_HASH table: the
// highest bucket value is the last hashed symbol's index, and its chain runs
// until an entry with the stop bit set.
func gnuSymbolCount(table uintptr) uint32 {
	hdr := unsafe.Slice((*uint32)(unsafe.Pointer(table)), 4)
	nbuckets, symoffset, bloomSize := hdr[0], hdr[1], hdr[2]
	if nbuckets == 0 {
		return symoffset
	}
	bucketsAddr := table + 16 + uintptr(bloomSize)*8
	buckets := unsafe.Slice((*uint32)(unsafe.Pointer(bucketsAddr)), nbuckets)
	last := uint32(0)
	for _, b := range buckets {
		if b > last {
			last = b
		}
	}
	if last < symoffset {
		return symoffset
	}
	chainsAddr := bucketsAddr + uintptr(nbuckets)*4
	for {
		c := *(*uint32)(unsafe.Pointer(chainsAddr + uintptr(last-symoffset)*4))
		if c&1 != 0 {
			return last + 1
		}
		last++
	}
}
