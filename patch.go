package elfpatch

import (
	"unsafe"

	"github.com/apex/log"
	"golang.org/x/sys/unix"

	"github.com/memtrace/elfpatch/internal/dynelf"
)

var pageSize = uintptr(unix.Getpagesize())

func unprotectPage(addr uintptr) error {
	page := dynelf.AlignDown(addr, pageSize)
	mem := unsafe.Slice((*byte)(unsafe.Pointer(page)), pageSize)
	return unix.Mprotect(mem, unix.PROT_READ|unix.PROT_WRITE)
}

// patchSymbol overwrites one relocation slot, redirecting it to the
// descriptor's trampoline or back to its captured original. This is the only
// place in the engine that mutates process memory. A failed permission change
// is tolerated: relocation sections are ordinarily writable already, so the
// store is attempted regardless.
func patchSymbol(h *HookDescriptor, slot uintptr, restore bool) {
	if err := unprotectPage(slot); err != nil {
		log.Warnf("could not prepare the memory page of symbol %s for patching: %v", h.Symbol, err)
	}
	v := h.trampoline
	if restore {
		v = h.original
	}
	// One pointer-sized store; a concurrent caller through the slot sees
	// either the old or the new target, never a torn value.
	*(*uintptr)(unsafe.Pointer(slot)) = v
	log.Debugf("%s intercepted", h.Symbol)
}
