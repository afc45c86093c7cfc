package vmm

import (
	"unsafe"

	"talon/internal/addr"
	"talon/internal/arch"
)

// tableArena backs fake physical frames for host tests: real Go-allocated
// arrays whose host address is folded back through the HHDM arithmetic so
// that PageTable.entries() (which dereferences via the default HHDM frame
// projection) lands on real memory instead of a freestanding-only physical
// address. Frames are held by pointer so they never move and stay alive
// for the life of the test process.
var tableArena []*[arch.EntriesPerTable]PageTableEntry

// newFakeFrame allocates a fresh zeroed table-sized block of real memory and
// returns the PhysAddr that makes the HHDM projection resolve back to it.
func newFakeFrame() addr.PhysAddr {
	real := new([arch.EntriesPerTable]PageTableEntry)
	tableArena = append(tableArena, real)
	hostAddr := uint64(uintptr(unsafe.Pointer(real)))
	return addr.NewPhysAddrCanonical(hostAddr - addr.HHDMOffset)
}

// fakeAllocator hands out fresh fake frames until it runs dry, then reports
// ErrOutOfMemory, mirroring the real pmm allocators' exhaustion behavior.
func fakeAllocator(budget int) FrameAllocatorFn {
	used := 0
	return func() (addr.PhysAddr, error) {
		if used >= budget {
			return 0, newErr("fake allocator exhausted")
		}
		used++
		return newFakeFrame(), nil
	}
}
