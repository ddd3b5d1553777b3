//go:build amd64

package elfpatch

import (
	"unsafe"

	"golang.org/x/arch/x86/x86asm"
)

// followIndirect unwraps a call-indirection stub. A symbol lookup can land on
// a PLT entry instead of the implementation it forwards to; such a stub is a
// single JMP through a RIP-relative slot (optionally behind an ENDBR64
// marker). When addr decodes that way the slot's current target is captured
// instead, so the registry never records a stub as an original.
func followIndirect(addr uintptr) uintptr {
	pc := addr
	code := unsafe.Slice((*byte)(unsafe.Pointer(pc)), 16)
	if code[0] == 0xf3 && code[1] == 0x0f && code[2] == 0x1e && code[3] == 0xfa {
		pc += 4
		code = code[4:]
	}
	inst, err := x86asm.Decode(code, 64)
	if err != nil || inst.Op != x86asm.JMP {
		return addr
	}
	mem, ok := inst.Args[0].(x86asm.Mem)
	if !ok || mem.Base != x86asm.RIP {
		return addr
	}
	slot := pc + uintptr(inst.Len) + uintptr(mem.Disp)
	target := *(*uintptr)(unsafe.Pointer(slot))
	if target == 0 {
		return addr
	}
	return target
}
