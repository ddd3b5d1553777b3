package elfpatch

import (
	"unsafe"

	"github.com/ebitengine/purego"
)

// callFunc forwards a raw call to a captured C function address. It is a
// field rather than a direct purego call so tests can substitute the real
// operation.
type callFunc func(fn uintptr, args ...uintptr) uintptr

func rawCall(fn uintptr, args ...uintptr) uintptr {
	r1, _, _ := purego.SyscallN(fn, args...)
	return r1
}

// mmap reports failure as (void*)-1, not NULL.
const mapFailed = ^uintptr(0)

// interceptors are the trampolines installed into relocation slots. Each one
// is signature-identical to the symbol it replaces, performs the real
// operation through the captured original and notifies the sink. Once
// installed they run on arbitrary application threads; they touch only their
// immutable descriptors and the sink.
type interceptors struct {
	sink Sink
	call callFunc

	malloc        *HookDescriptor
	free          *HookDescriptor
	calloc        *HookDescriptor
	realloc       *HookDescriptor
	posixMemalign *HookDescriptor
	memalign      *HookDescriptor
	valloc        *HookDescriptor
	pvalloc       *HookDescriptor
	dlopen        *HookDescriptor
	dlclose       *HookDescriptor
	mmap          *HookDescriptor
	mmap64        *HookDescriptor
	munmap        *HookDescriptor
	gilEnsure     *HookDescriptor
}

func newInterceptors(reg *Registry, sink Sink, call callFunc) *interceptors {
	return &interceptors{
		sink:          sink,
		call:          call,
		malloc:        reg.Hook("malloc"),
		free:          reg.Hook("free"),
		calloc:        reg.Hook("calloc"),
		realloc:       reg.Hook("realloc"),
		posixMemalign: reg.Hook("posix_memalign"),
		memalign:      reg.Hook("memalign"),
		valloc:        reg.Hook("valloc"),
		pvalloc:       reg.Hook("pvalloc"),
		dlopen:        reg.Hook("dlopen"),
		dlclose:       reg.Hook("dlclose"),
		mmap:          reg.Hook("mmap"),
		mmap64:        reg.Hook("mmap64"),
		munmap:        reg.Hook("munmap"),
		gilEnsure:     reg.Hook("PyGILState_Ensure"),
	}
}

// bind mints one C-callable pointer per trampoline and records it in the
// matching descriptor. The pointers stay valid for the process lifetime.
func (ic *interceptors) bind(reg *Registry) {
	for name, fn := range map[string]uintptr{
		"malloc":            purego.NewCallback(ic.interceptMalloc),
		"free":              purego.NewCallback(ic.interceptFree),
		"calloc":            purego.NewCallback(ic.interceptCalloc),
		"realloc":           purego.NewCallback(ic.interceptRealloc),
		"posix_memalign":    purego.NewCallback(ic.interceptPosixMemalign),
		"memalign":          purego.NewCallback(ic.interceptMemalign),
		"valloc":            purego.NewCallback(ic.interceptValloc),
		"pvalloc":           purego.NewCallback(ic.interceptPvalloc),
		"dlopen":            purego.NewCallback(ic.interceptDlopen),
		"dlclose":           purego.NewCallback(ic.interceptDlclose),
		"mmap":              purego.NewCallback(ic.interceptMmap),
		"mmap64":            purego.NewCallback(ic.interceptMmap64),
		"munmap":            purego.NewCallback(ic.interceptMunmap),
		"PyGILState_Ensure": purego.NewCallback(ic.interceptGILEnsure),
	} {
		reg.Hook(name).trampoline = fn
	}
}

func (ic *interceptors) interceptMalloc(size uintptr) uintptr {
	ptr := ic.call(ic.malloc.original, size)
	if ptr != 0 {
		ic.sink.TrackAllocation(ptr, size, AllocMalloc.Kind())
	}
	return ptr
}

func (ic *interceptors) interceptFree(ptr uintptr) uintptr {
	// Notify before the real call so a concurrent allocation cannot reuse
	// the address before the event is recorded.
	ic.sink.TrackDeallocation(ptr, 0, AllocFree.Kind())
	ic.call(ic.free.original, ptr)
	return 0
}

func (ic *interceptors) interceptCalloc(num, size uintptr) uintptr {
	ptr := ic.call(ic.calloc.original, num, size)
	if ptr != 0 {
		ic.sink.TrackAllocation(ptr, num*size, AllocCalloc.Kind())
	}
	return ptr
}

// A successful reallocate is modeled as a deallocation of the old pointer
// followed by an allocation of the new one; a failed call leaves the old
// allocation live and emits nothing.
func (ic *interceptors) interceptRealloc(ptr, size uintptr) uintptr {
	ret := ic.call(ic.realloc.original, ptr, size)
	if ret != 0 {
		ic.sink.TrackDeallocation(ptr, 0, AllocFree.Kind())
		ic.sink.TrackAllocation(ret, size, AllocRealloc.Kind())
	}
	return ret
}

func (ic *interceptors) interceptPosixMemalign(memptr, alignment, size uintptr) uintptr {
	ret := ic.call(ic.posixMemalign.original, memptr, alignment, size)
	if ret == 0 {
		out := *(*uintptr)(unsafe.Pointer(memptr))
		ic.sink.TrackAllocation(out, size, AllocPosixMemalign.Kind())
	}
	return ret
}

func (ic *interceptors) interceptMemalign(alignment, size uintptr) uintptr {
	ptr := ic.call(ic.memalign.original, alignment, size)
	if ptr != 0 {
		ic.sink.TrackAllocation(ptr, size, AllocMemalign.Kind())
	}
	return ptr
}

func (ic *interceptors) interceptValloc(size uintptr) uintptr {
	ptr := ic.call(ic.valloc.original, size)
	if ptr != 0 {
		ic.sink.TrackAllocation(ptr, size, AllocValloc.Kind())
	}
	return ptr
}

func (ic *interceptors) interceptPvalloc(size uintptr) uintptr {
	ptr := ic.call(ic.pvalloc.original, size)
	if ptr != 0 {
		ic.sink.TrackAllocation(ptr, size, AllocPvalloc.Kind())
	}
	return ptr
}

func (ic *interceptors) interceptMmap(addr, length, prot, flags, fd, offset uintptr) uintptr {
	ret := ic.call(ic.mmap.original, addr, length, prot, flags, fd, offset)
	if ret != mapFailed {
		ic.sink.TrackAllocation(ret, length, AllocMmap.Kind())
	}
	return ret
}

func (ic *interceptors) interceptMmap64(addr, length, prot, flags, fd, offset uintptr) uintptr {
	ret := ic.call(ic.mmap64.original, addr, length, prot, flags, fd, offset)
	if ret != mapFailed {
		ic.sink.TrackAllocation(ret, length, AllocMmap.Kind())
	}
	return ret
}

func (ic *interceptors) interceptMunmap(addr, length uintptr) uintptr {
	ic.sink.TrackDeallocation(addr, length, AllocMunmap.Kind())
	return ic.call(ic.munmap.original, addr, length)
}

func (ic *interceptors) interceptDlopen(filename, flag uintptr) uintptr {
	handle := ic.call(ic.dlopen.original, filename, flag)
	if handle != 0 {
		// The address space just changed shape.
		ic.sink.InvalidateModuleCache()
	}
	return handle
}

func (ic *interceptors) interceptDlclose(handle uintptr) uintptr {
	ret := ic.call(ic.dlclose.original, handle)
	// Return addresses may now point into unloaded code, whether or not
	// the unload itself succeeded.
	ic.sink.FlushNativeTraceCache()
	if ret == 0 {
		ic.sink.InvalidateModuleCache()
	}
	return ret
}

func (ic *interceptors) interceptGILEnsure() uintptr {
	state := ic.call(ic.gilEnsure.original)
	// A thread newly holding the lock becomes observable to frame capture
	// here.
	ic.sink.InstallTraceFunction()
	return state
}
