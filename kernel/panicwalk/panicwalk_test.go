package panicwalk

import (
	"testing"
	"unsafe"

	"talon/internal/addr"
	"talon/internal/trap"
	"talon/internal/vmm"
)

// buildChain lays out n frames of [prevFP, lr] pairs in real Go memory and
// returns the VirtAddr of the first frame; frame i's lr is pc0+i so tests
// can assert the walk visited every link in order.
func buildChain(n int, pc0 uint64) addr.VirtAddr {
	buf := make([]uint64, 2*n)
	for i := 0; i < n; i++ {
		if i+1 < n {
			next := uint64(uintptr(unsafe.Pointer(&buf[2*(i+1)])))
			buf[2*i] = next
		} else {
			buf[2*i] = 0
		}
		buf[2*i+1] = pc0 + uint64(i)
	}
	return addr.NewVirtAddrCanonical(uint64(uintptr(unsafe.Pointer(&buf[0]))))
}

func TestWalkVisitsEveryFrameAndHalts(t *testing.T) {
	puts, tags, halts, restore := installFakes()
	defer restore()

	fp := buildChain(3, 0x4000)
	Walk(vmm.PageTable{}, "test panic", nil, fp)

	if *halts != 1 {
		t.Fatalf("haltFn called %d times, want 1", *halts)
	}
	pcCount := 0
	for _, tag := range *tags {
		if tag == "  pc" {
			pcCount++
		}
	}
	if pcCount != 3 {
		t.Fatalf("walked %d pc frames, want 3", pcCount)
	}
	foundTag := false
	for _, s := range *puts {
		if s == "test panic" {
			foundTag = true
		}
	}
	if !foundTag {
		t.Fatalf("puts log %v missing panic tag", *puts)
	}
}

func TestWalkStopsAtNullFramePointer(t *testing.T) {
	_, tags, halts, restore := installFakes()
	defer restore()

	Walk(vmm.PageTable{}, "no frames", nil, addr.VirtAddr(0))

	if *halts != 1 {
		t.Fatalf("haltFn called %d times, want 1", *halts)
	}
	for _, tag := range *tags {
		if tag == "  pc" {
			t.Fatalf("walked a frame from a null fp")
		}
	}
}

func TestWalkLogsFaultRegistersWhenFrameProvided(t *testing.T) {
	_, tags, _, restore := installFakes()
	defer restore()

	frame := &trap.InterruptFrame{ELR: 0x1000, ESR: 0x2000, SPSR: 0x3c5}
	Walk(vmm.PageTable{}, "fault", frame, addr.VirtAddr(0))

	want := map[string]bool{"elr": false, "esr": false, "spsr": false, "far": false}
	for _, tag := range *tags {
		if _, ok := want[tag]; ok {
			want[tag] = true
		}
	}
	for tag, seen := range want {
		if !seen {
			t.Fatalf("missing register log for %q, got %v", tag, *tags)
		}
	}
}

func TestWalkStopsAtUnmappedFramePointer(t *testing.T) {
	_, tags, halts, restore := installFakes()
	defer restore()

	translateFn = func(root vmm.PageTable, v addr.VirtAddr) (vmm.PageTableEntry, error) {
		return vmm.Unused, vmm.ErrNoNextTable
	}

	Walk(vmm.PageTable{}, "unmapped", nil, addr.NewVirtAddrCanonical(0xdead_beef))

	if *halts != 1 {
		t.Fatalf("haltFn called %d times, want 1", *halts)
	}
	found := false
	for _, tag := range *tags {
		if tag == "  <unmapped fp>" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an unmapped-fp log line, got %v", *tags)
	}
}
