// Package dynelf provides read-only views over the dynamic-linking metadata
// of modules loaded in the current process: the dynamic section, the dynamic
// symbol table and the three relocation tables. All views operate directly on
// mapped module memory and never copy entries into owned storage.
package dynelf

import (
	"debug/elf"
	"unsafe"
)

// Not exposed by debug/elf on older Go releases.
const dtGNUHash = elf.DynTag(0x6ffffef5)

const (
	dynSize  = unsafe.Sizeof(elf.Dyn64{})
	symSize  = unsafe.Sizeof(elf.Sym64{})
	relSize  = unsafe.Sizeof(elf.Rel64{})
	relaSize = unsafe.Sizeof(elf.Rela64{})
)

// DynInfo is the decoded dynamic section of one loaded module.
type DynInfo struct {
	base uintptr

	symtab uintptr
	strtab uintptr
	strsz  uintptr

	hash    uintptr
	gnuHash uintptr

	rel, relsz, relent    uintptr
	rela, relasz, relaent uintptr
	jmprel, pltrelsz      uintptr
	pltRela               bool
}

// ReadDynamic walks the dynamic entry array at dyn until DT_NULL and collects
// the tags relevant to symbol and relocation access. base is the module's
// relocation bias (zero for a fixed-position executable).
func ReadDynamic(base, dyn uintptr) *DynInfo {
	d := &DynInfo{base: base}
	for addr := dyn; ; addr += dynSize {
		e := *(*elf.Dyn64)(unsafe.Pointer(addr))
		tag := elf.DynTag(e.Tag)
		if tag == elf.DT_NULL {
			break
		}
		switch tag {
		case elf.DT_SYMTAB:
			d.symtab = d.ptr(e.Val)
		case elf.DT_STRTAB:
			d.strtab = d.ptr(e.Val)
		case elf.DT_STRSZ:
			d.strsz = uintptr(e.Val)
		case elf.DT_HASH:
			d.hash = d.ptr(e.Val)
		case dtGNUHash:
			d.gnuHash = d.ptr(e.Val)
		case elf.DT_REL:
			d.rel = d.ptr(e.Val)
		case elf.DT_RELSZ:
			d.relsz = uintptr(e.Val)
		case elf.DT_RELENT:
			d.relent = uintptr(e.Val)
		case elf.DT_RELA:
			d.rela = d.ptr(e.Val)
		case elf.DT_RELASZ:
			d.relasz = uintptr(e.Val)
		case elf.DT_RELAENT:
			d.relaent = uintptr(e.Val)
		case elf.DT_JMPREL:
			d.jmprel = d.ptr(e.Val)
		case elf.DT_PLTRELSZ:
			d.pltrelsz = uintptr(e.Val)
		case elf.DT_PLTREL:
			d.pltRela = elf.DynTag(e.Val) == elf.DT_RELA
		}
	}
	return d
}

// Base returns the module's relocation bias.
func (d *DynInfo) Base() uintptr {
	return d.base
}

// Most loaders leave d_ptr entries as unrelocated virtual addresses, but some
// (and some link editors) store absolute addresses. Values below the bias
// still need it added.
func (d *DynInfo) ptr(v uint64) uintptr {
	p := uintptr(v)
	if p < d.base {
		p += d.base
	}
	return p
}
