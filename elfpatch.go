package elfpatch

import (
	"strings"

	"github.com/apex/log"

	"github.com/memtrace/elfpatch/internal/dynelf"
)

// moduleIter feeds a sweep one loaded module at a time, reduced to its load
// path, relocation bias and dynamic-section address. It exists as a seam so
// sweeps can run over synthetic modules in tests.
type moduleIter func(fn func(path string, base, dyn uintptr) bool) error

func liveModules(fn func(path string, base, dyn uintptr) bool) error {
	return dynelf.EachModule(func(m *dynelf.Module) bool {
		return fn(m.Path, m.Base, m.Dynamic())
	})
}

// Engine owns one install/restore epoch of process-wide symbol patching.
// Engines are independent values so isolated instances can coexist; nothing
// in the engine is protected by locks, per the single-coordinating-thread
// contract of OverwriteSymbols and RestoreSymbols.
type Engine struct {
	hooks   *Registry
	sink    Sink
	patched map[string]struct{}
	modules moduleIter
	bound   bool
}

// EngineOption adjusts engine construction.
type EngineOption func(*Engine)

func withModules(it moduleIter) EngineOption {
	return func(e *Engine) { e.modules = it }
}

func withTrampolines(tr map[string]uintptr) EngineOption {
	return func(e *Engine) {
		for name, addr := range tr {
			if h := e.hooks.Hook(name); h != nil {
				h.trampoline = addr
			}
		}
		e.bound = true
	}
}

// NewEngine validates the registry, binds one trampoline per descriptor and
// returns an engine ready to sweep. A registry with any unresolved original
// is refused outright: partial instrumentation would silently under-report
// memory activity.
func NewEngine(reg *Registry, sink Sink, opts ...EngineOption) (*Engine, error) {
	if err := reg.EnsureAllHooksAreValid(); err != nil {
		return nil, err
	}
	e := &Engine{
		hooks:   reg,
		sink:    sink,
		patched: make(map[string]struct{}),
		modules: liveModules,
	}
	for _, opt := range opts {
		opt(e)
	}
	if !e.bound {
		newInterceptors(reg, sink, rawCall).bind(reg)
		e.bound = true
	}
	return e, nil
}

// OverwriteSymbols installs every hook across every loaded module. Modules
// already patched during the current epoch are skipped, so repeated calls
// patch each module at most once; modules loaded afterwards stay unpatched
// until the next call.
func (e *Engine) OverwriteSymbols() error {
	return e.modules(func(path string, base, dyn uintptr) bool {
		if _, done := e.patched[path]; done {
			return true
		}
		e.patched[path] = struct{}{}
		if excludedModule(path) {
			return true
		}
		log.Infof("patching symbols for %s", path)
		e.patchModule(base, dyn, false)
		return true
	})
}

// RestoreSymbols writes the captured originals back into every matching
// relocation slot of every loaded module, unconditionally, and resets the
// patched set so the next OverwriteSymbols starts a fresh epoch.
func (e *Engine) RestoreSymbols() error {
	clear(e.patched)
	return e.modules(func(path string, base, dyn uintptr) bool {
		if excludedModule(path) {
			return true
		}
		e.patchModule(base, dyn, true)
		return true
	})
}

// Overwriting the dynamic linker's own slots destabilizes lazy binding, and
// the vdso carries no usable symbol metadata.
func excludedModule(path string) bool {
	return strings.Contains(path, "/ld-linux") || strings.Contains(path, "linux-vdso")
}

func (e *Engine) patchModule(base, dyn uintptr, restore bool) {
	if dyn == 0 {
		return
	}
	info := dynelf.ReadDynamic(base, dyn)
	symbols := dynelf.NewSymbolTable(info)
	for _, table := range info.Tables() {
		for i := 0; i < table.Len(); i++ {
			slot, index := table.Entry(i)
			h := e.hooks.Hook(symbols.NameByIndex(index))
			if h == nil {
				continue
			}
			patchSymbol(h, slot, restore)
		}
	}
}
