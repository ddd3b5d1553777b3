package elfpatch

// Sink receives the events emitted by the intercept trampolines. Its
// implementation lives with the embedding profiler; every method must be safe
// for concurrent use, since trampolines run on arbitrary application threads.
type Sink interface {
	// TrackAllocation records a successful allocation of size bytes at ptr.
	TrackAllocation(ptr, size uintptr, kind AllocatorKind)
	// TrackDeallocation records a deallocation at ptr. size is zero for
	// simple deallocators and the unmapped length for ranged ones.
	TrackDeallocation(ptr, size uintptr, kind AllocatorKind)
	// InvalidateModuleCache drops cached module and symbol metadata after
	// the address space changes shape.
	InvalidateModuleCache()
	// InstallTraceFunction arms host-runtime frame capture for the calling
	// thread.
	InstallTraceFunction()
	// FlushNativeTraceCache drops cached native-stack resolution state.
	FlushNativeTraceCache()
}
