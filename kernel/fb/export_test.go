package fb

import (
	"unsafe"

	"talon/internal/addr"
)

// fakeBuffer backs fbPhys for host tests: a real Go-allocated byte slice
// whose host address is folded back through the HHDM arithmetic, the same
// trick internal/vmm's export_test.go uses for fake page-table frames.
var fakeBuffer []byte

func newFakeBuffer(n int) addr.PhysAddr {
	fakeBuffer = make([]byte, n)
	hostAddr := uint64(uintptr(unsafe.Pointer(&fakeBuffer[0])))
	return addr.NewPhysAddrCanonical(hostAddr - addr.HHDMOffset)
}
