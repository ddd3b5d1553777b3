package elfpatch

// AllocatorKind tells the event sink how to interpret a hooked call's
// (pointer, size) pair.
type AllocatorKind int

const (
	// SimpleAllocator covers heap allocators returning a new pointer.
	SimpleAllocator AllocatorKind = iota
	// SimpleDeallocator covers heap deallocators taking a pointer.
	SimpleDeallocator
	// RangedAllocator covers address-range allocation (memory mapping).
	RangedAllocator
	// RangedDeallocator covers address-range deallocation (unmapping).
	RangedDeallocator
)

func (k AllocatorKind) String() string {
	switch k {
	case SimpleAllocator:
		return "simple allocator"
	case SimpleDeallocator:
		return "simple deallocator"
	case RangedAllocator:
		return "ranged allocator"
	case RangedDeallocator:
		return "ranged deallocator"
	}
	return "unknown"
}

// Allocator identifies the concrete hooked allocation operation.
type Allocator int

const (
	// AllocNone marks hooks that do not allocate (dlopen, dlclose, the
	// lock-acquisition hook).
	AllocNone Allocator = iota
	AllocMalloc
	AllocCalloc
	AllocRealloc
	AllocPosixMemalign
	AllocMemalign
	AllocValloc
	AllocPvalloc
	AllocFree
	AllocMmap
	AllocMunmap
)

// Kind classifies the operation for the event sink.
func (a Allocator) Kind() AllocatorKind {
	switch a {
	case AllocMalloc, AllocCalloc, AllocRealloc,
		AllocPosixMemalign, AllocMemalign, AllocValloc, AllocPvalloc:
		return SimpleAllocator
	case AllocFree:
		return SimpleDeallocator
	case AllocMmap:
		return RangedAllocator
	case AllocMunmap:
		return RangedDeallocator
	}
	return SimpleAllocator
}
