// Package elfpatch redirects calls to heap-allocation, address-space and
// dynamic-loading primitives in the current process by rewriting relocation
// slots in place, without recompiling or restarting anything. Every rewritten
// slot points at a trampoline that performs the real operation and notifies
// an external event sink with allocation semantics; restoring writes the
// captured originals back.
//
// The entire public surface is Engine.OverwriteSymbols and
// Engine.RestoreSymbols, plus the registry construction they depend on. Both
// sweeps are synchronous and must be driven from a single coordinating
// thread; the installed trampolines themselves are safe under unrestricted
// concurrent invocation.
package elfpatch
