package elfpatch

import (
	"errors"
	"strings"
	"testing"
)

func TestRegistryResolvesEveryCatalogSymbol(t *testing.T) {
	reg := NewRegistry(testResolver)
	if err := reg.EnsureAllHooksAreValid(); err != nil {
		t.Fatalf("expected valid registry - got %v", err)
	}
	for _, symbol := range []string{
		"malloc", "free", "calloc", "realloc",
		"posix_memalign", "memalign", "valloc", "pvalloc",
		"dlopen", "dlclose", "mmap", "mmap64", "munmap",
		"PyGILState_Ensure",
	} {
		h := reg.Hook(symbol)
		if h == nil {
			t.Fatalf("expected a descriptor for %s", symbol)
		}
		if h.Original() != originalFor(symbol) {
			t.Fatalf("%s: expected original %#x - got %#x", symbol, originalFor(symbol), h.Original())
		}
	}
}

func TestRegistryRejectsUnknownSymbols(t *testing.T) {
	reg := NewRegistry(testResolver)
	if h := reg.Hook("strlen"); h != nil {
		t.Fatalf("expected no descriptor for strlen - got %+v", h)
	}
	if h := reg.Hook(""); h != nil {
		t.Fatalf("expected no descriptor for the empty name - got %+v", h)
	}
}

func TestEnsureAllHooksAreValidFailsClosed(t *testing.T) {
	reg := NewRegistry(func(name string) (uintptr, error) {
		if name == "mmap64" {
			return 0, ErrSymbolNotFound
		}
		return originalFor(name), nil
	})
	err := reg.EnsureAllHooksAreValid()
	if !errors.Is(err, ErrUnresolvedHook) {
		t.Fatalf("expected ErrUnresolvedHook - got %v", err)
	}
	if !strings.Contains(err.Error(), "mmap64") {
		t.Fatalf("expected the failing symbol in the error - got %q", err.Error())
	}
}

func TestAllocatorClassification(t *testing.T) {
	cases := []struct {
		alloc Allocator
		want  AllocatorKind
	}{
		{AllocMalloc, SimpleAllocator},
		{AllocCalloc, SimpleAllocator},
		{AllocRealloc, SimpleAllocator},
		{AllocPosixMemalign, SimpleAllocator},
		{AllocMemalign, SimpleAllocator},
		{AllocValloc, SimpleAllocator},
		{AllocPvalloc, SimpleAllocator},
		{AllocFree, SimpleDeallocator},
		{AllocMmap, RangedAllocator},
		{AllocMunmap, RangedDeallocator},
	}
	for _, tc := range cases {
		if got := tc.alloc.Kind(); got != tc.want {
			t.Fatalf("allocator %d: expected %v - got %v", tc.alloc, tc.want, got)
		}
	}
}
