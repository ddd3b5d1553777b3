package dynelf

import (
	"debug/elf"
	"unsafe"
)

// RelocKind distinguishes the three relocation layouts. The engine treats the
// entries identically once reduced to (slot, symbol index); the kind only
// drives how they are read.
type RelocKind int

const (
	// RelocImplicitAddend entries carry no addend field (Elf64_Rel).
	RelocImplicitAddend RelocKind = iota
	// RelocExplicitAddend entries carry an addend field (Elf64_Rela).
	RelocExplicitAddend
	// RelocIndirect entries relocate the call-indirection (PLT) slots.
	RelocIndirect
)

// RelocTable is a read-only sequence of relocation entries in module memory.
type RelocTable struct {
	Kind RelocKind

	base    uintptr
	addr    uintptr
	size    uintptr
	entsize uintptr
	rela    bool
}

// RelTable returns the module's implicit-addend relocation sequence.
func (d *DynInfo) RelTable() RelocTable {
	ent := d.relent
	if ent == 0 {
		ent = relSize
	}
	return RelocTable{
		Kind:    RelocImplicitAddend,
		base:    d.base,
		addr:    d.rel,
		size:    d.relsz,
		entsize: ent,
	}
}

// RelaTable returns the module's explicit-addend relocation sequence.
func (d *DynInfo) RelaTable() RelocTable {
	ent := d.relaent
	if ent == 0 {
		ent = relaSize
	}
	return RelocTable{
		Kind:    RelocExplicitAddend,
		base:    d.base,
		addr:    d.rela,
		size:    d.relasz,
		entsize: ent,
		rela:    true,
	}
}

// JmprelTable returns the relocation sequence for the call-indirection table.
// Its entry layout is whichever DT_PLTREL announces.
func (d *DynInfo) JmprelTable() RelocTable {
	ent := relSize
	if d.pltRela {
		ent = relaSize
	}
	return RelocTable{
		Kind:    RelocIndirect,
		base:    d.base,
		addr:    d.jmprel,
		size:    d.pltrelsz,
		entsize: ent,
		rela:    d.pltRela,
	}
}

// Len returns the number of entries in the table.
func (t RelocTable) Len() int {
	if t.addr == 0 || t.entsize == 0 {
		return 0
	}
	return int(t.size / t.entsize)
}

// Entry reduces entry i to its absolute slot address and symbol-table index.
func (t RelocTable) Entry(i int) (slot uintptr, symIndex uint32) {
	p := t.addr + uintptr(i)*t.entsize
	if t.rela {
		r := (*elf.Rela64)(unsafe.Pointer(p))
		return t.base + uintptr(r.Off), elf.R_SYM64(r.Info)
	}
	r := (*elf.Rel64)(unsafe.Pointer(p))
	return t.base + uintptr(r.Off), elf.R_SYM64(r.Info)
}

// Tables returns the module's three relocation sequences in scan order.
func (d *DynInfo) Tables() []RelocTable {
	return []RelocTable{d.RelTable(), d.RelaTable(), d.JmprelTable()}
}
