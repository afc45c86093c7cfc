package addr

import "testing"

func TestPhysAddrCanonicalInvariant(t *testing.T) {
	cases := []uint64{0, 0x1234_5000, 0xFFFF_FFFF_F000}
	for _, v := range cases {
		p, err := NewPhysAddr(v)
		if err != nil {
			t.Fatalf("NewPhysAddr(%#x): %v", v, err)
		}
		if p.Value() != v&physCanonicalMask {
			t.Errorf("NewPhysAddr(%#x) = %#x, want canonicalized", v, p.Value())
		}
	}
}

func TestPhysAddrRejectsNonCanonical(t *testing.T) {
	_, err := NewPhysAddr(1 << 60)
	if err != ErrNonCanonicalPhysAddr {
		t.Fatalf("expected ErrNonCanonicalPhysAddr, got %v", err)
	}
}

func TestVirtAddrCanonicalInvariant(t *testing.T) {
	v := NewVirtAddrCanonical(0xffff_8000_1234_5000)
	if v.Value() != canonicalizeVirt(v.Value()) {
		t.Errorf("VirtAddr %#x is not canonical", v.Value())
	}
}

// S1 — HHDM round-trip, spec.md §8.
func TestHHDMRoundTrip(t *testing.T) {
	phys, err := NewPhysAddr(0x1234_5000)
	if err != nil {
		t.Fatal(err)
	}
	v := phys.AsHHDMVirt()
	want := VirtAddr(0xffff_8000_1234_5000)
	if v != want {
		t.Fatalf("AsHHDMVirt() = %#x, want %#x", v.Value(), want.Value())
	}
	if v.AsHHDMPhys() != phys {
		t.Fatalf("round-trip AsHHDMPhys() = %#x, want %#x", v.AsHHDMPhys().Value(), phys.Value())
	}
}

func TestPageTableIndexInRange(t *testing.T) {
	v := NewVirtAddrCanonical(0xffff_8000_1234_5000)
	for level := 1; level <= 4; level++ {
		idx := v.PageTableIndex(level)
		if idx >= 512 {
			t.Errorf("level %d index %d out of range", level, idx)
		}
	}
}

func TestCheckRangeRejectsNull(t *testing.T) {
	if err := checkRange(0, 4); err != ErrNullVirtAddr {
		t.Fatalf("expected ErrNullVirtAddr, got %v", err)
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	var backing uint64
	v := VirtAddr(uintptrOf(&backing))
	if err := Write(v, uint64(0xdead_beef)); err != nil {
		t.Fatal(err)
	}
	got, err := Read[uint64](v)
	if err != nil {
		t.Fatal(err)
	}
	if got != 0xdead_beef {
		t.Fatalf("got %#x, want 0xdeadbeef", got)
	}
}

func TestFrameCountConversions(t *testing.T) {
	c := FrameCountFromBytes(4097)
	if c != 2 {
		t.Fatalf("FrameCountFromBytes(4097) = %d, want 2", c)
	}
	if c.Bytes() != 8192 {
		t.Fatalf("Bytes() = %d, want 8192", c.Bytes())
	}
}
