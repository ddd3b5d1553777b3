package elfpatch

import (
	"runtime"
	"testing"
)

func TestPatchSymbolRoundTrip(t *testing.T) {
	slots := make([]uintptr, 1)
	slots[0] = 0xaaaa0000

	h := &HookDescriptor{
		Symbol:     "malloc",
		original:   0xaaaa0000,
		trampoline: 0xbbbb0000,
	}

	patchSymbol(h, sliceAddr(slots), false)
	if slots[0] != h.trampoline {
		t.Fatalf("expected trampoline %#x - got %#x", h.trampoline, slots[0])
	}

	patchSymbol(h, sliceAddr(slots), true)
	if slots[0] != h.original {
		t.Fatalf("expected original %#x - got %#x", h.original, slots[0])
	}
	runtime.KeepAlive(slots)
}

func TestUnprotectPageToleratesWritablePages(t *testing.T) {
	// Heap pages are already readable and writable; the permission change
	// must succeed and leave the data intact.
	buf := make([]byte, 64)
	buf[0] = 0x7f
	if err := unprotectPage(sliceAddr(buf)); err != nil {
		t.Fatalf("unprotect failed: %v", err)
	}
	if buf[0] != 0x7f {
		t.Fatalf("expected data intact - got %#x", buf[0])
	}
	runtime.KeepAlive(buf)
}
