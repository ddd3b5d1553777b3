package elfpatch

import (
	"errors"
	"fmt"
)

var (
	// ErrUnresolvedHook means a hook's original implementation could not
	// be located; the engine must not run partially resolved.
	ErrUnresolvedHook = errors.New("hook original not resolved")
	// ErrSymbolNotFound means no loaded module defines the symbol.
	ErrSymbolNotFound = errors.New("symbol not found in any loaded module")
)

// HookDescriptor describes one hooked symbol: its name, its classification
// and the captured address of the genuine implementation. The original
// address is resolved exactly once, before any patching, and is immutable
// afterwards.
type HookDescriptor struct {
	Symbol string
	Alloc  Allocator

	original   uintptr
	trampoline uintptr
}

// Original returns the captured address of the un-intercepted implementation.
func (h *HookDescriptor) Original() uintptr {
	return h.original
}

// ResolveFunc locates the address of a named symbol in the loaded process.
type ResolveFunc func(name string) (uintptr, error)

// Registry is the fixed catalog of hook descriptors, keyed by symbol name so
// relocation matching costs one map lookup per entry.
type Registry struct {
	byName  map[string]*HookDescriptor
	ordered []*HookDescriptor
}

var hookCatalog = []struct {
	symbol string
	alloc  Allocator
}{
	{"malloc", AllocMalloc},
	{"free", AllocFree},
	{"calloc", AllocCalloc},
	{"realloc", AllocRealloc},
	{"posix_memalign", AllocPosixMemalign},
	{"memalign", AllocMemalign},
	{"valloc", AllocValloc},
	{"pvalloc", AllocPvalloc},
	{"dlopen", AllocNone},
	{"dlclose", AllocNone},
	{"mmap", AllocMmap},
	{"mmap64", AllocMmap},
	{"munmap", AllocMunmap},
	{"PyGILState_Ensure", AllocNone},
}

// NewRegistry builds the hook catalog, resolving each descriptor's original
// implementation through resolve (pass nil for the default, which searches
// every loaded module). Resolution failures are recorded, not returned;
// EnsureAllHooksAreValid must run once afterwards and reports them.
func NewRegistry(resolve ResolveFunc) *Registry {
	if resolve == nil {
		resolve = FindSymbol
	}
	r := &Registry{byName: make(map[string]*HookDescriptor, len(hookCatalog))}
	for _, c := range hookCatalog {
		h := &HookDescriptor{Symbol: c.symbol, Alloc: c.alloc}
		if addr, err := resolve(c.symbol); err == nil {
			h.original = addr
		}
		r.byName[h.Symbol] = h
		r.ordered = append(r.ordered, h)
	}
	return r
}

// EnsureAllHooksAreValid confirms every descriptor captured its original
// implementation. Any unresolved descriptor is a hard error: running with a
// partial catalog would silently under-report a subset of allocations.
func (r *Registry) EnsureAllHooksAreValid() error {
	for _, h := range r.ordered {
		if h.original == 0 {
			return fmt.Errorf("%s: %w", h.Symbol, ErrUnresolvedHook)
		}
	}
	return nil
}

// Hook returns the descriptor for the named symbol, or nil when the symbol
// is not in the catalog.
func (r *Registry) Hook(name string) *HookDescriptor {
	return r.byName[name]
}
