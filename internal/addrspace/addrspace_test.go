package addrspace

import (
	"testing"
	"unsafe"

	"talon/internal/addr"
	"talon/internal/arch"
	"talon/internal/vmm"
)

// frameArena keeps test-allocated table frames alive; each frame is real
// Go memory whose host address is folded back through the HHDM arithmetic
// so vmm's default frame projection resolves to it — the same trick
// internal/vmm's own export_test fake frames use.
var frameArena []*[arch.EntriesPerTable]uint64

func fakeAlloc(budget int) vmm.FrameAllocatorFn {
	used := 0
	return func() (addr.PhysAddr, error) {
		used++
		if used > budget {
			return 0, errOOM{}
		}
		frame := new([arch.EntriesPerTable]uint64)
		frameArena = append(frameArena, frame)
		host := uint64(uintptr(unsafe.Pointer(frame)))
		return addr.NewPhysAddrCanonical(host - addr.HHDMOffset), nil
	}
}

type errOOM struct{}

func (errOOM) Error() string { return "out of memory" }

func TestNewUserCreatesUserTable(t *testing.T) {
	as, err := NewUser(fakeAlloc(4))
	if err != nil {
		t.Fatalf("NewUser: %v", err)
	}
	as.RLock()
	defer as.RUnlock()
	if as.Table().Kind != vmm.KindUser {
		t.Fatalf("Table().Kind = %v, want KindUser", as.Table().Kind)
	}
	if !as.IsUser() {
		t.Fatal("IsUser() = false, want true")
	}
}

func TestCurrentKernelStartsAtZeroFrame(t *testing.T) {
	ck := CurrentKernel()
	ck.RLock()
	defer ck.RUnlock()
	if ck.TableRoot() != 0 {
		t.Fatalf("pre-paging CurrentKernel() TableRoot = %#x, want 0", ck.TableRoot())
	}
}

func TestAdoptCurrentKernelPublishesRoot(t *testing.T) {
	root := addr.NewPhysAddrCanonical(0x9000)
	AdoptCurrentKernel(root)
	t.Cleanup(func() { AdoptCurrentKernel(0) })

	ck := CurrentKernel()
	ck.RLock()
	defer ck.RUnlock()
	if ck.TableRoot() != root.Value() {
		t.Fatalf("TableRoot() = %#x, want %#x", ck.TableRoot(), root.Value())
	}
}

func TestNextCommitIdempotentWhenUnchanged(t *testing.T) {
	as, _ := NewUser(fakeAlloc(4))
	SetNext(as)
	Commit()
	if Current() != as {
		t.Fatal("Commit() did not publish the staged address space")
	}
	// Committing again with the same staged value is a no-op in effect.
	Commit()
	if Current() != as {
		t.Fatal("second Commit() should leave Current() unchanged")
	}
}
