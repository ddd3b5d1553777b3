//go:build !amd64

package elfpatch

// Only the amd64 call-indirection stub layout is recognized; elsewhere the
// looked-up address is captured as-is.
func followIndirect(addr uintptr) uintptr {
	return addr
}
