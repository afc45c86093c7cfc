package gic

import (
	"testing"

	"talon/internal/addr"
)

func newTestTable(t *testing.T) *DescriptorTable {
	t.Helper()
	gicd := addr.NewVirtAddrCanonical(0x1000_0000)
	regs := newFakeRegs(gicd)
	regs.install(t)
	return NewDescriptorTable(New(gicd, addr.NewVirtAddrCanonical(0x1001_0000)))
}

func TestRegisterClaimsSlotAndEnablesLine(t *testing.T) {
	d := newTestTable(t)

	fired := uint32(0)
	if !d.Register(97, TriggerLevel, func(hwirq uint32) { fired = hwirq }) {
		t.Fatal("Register(97) = false, want true")
	}

	// Second claim on the same line must fail without disturbing the first.
	if d.Register(97, TriggerLevel, func(uint32) {}) {
		t.Fatal("second Register(97) = true, want false")
	}

	h := d.HandlerFor(97)
	if h == nil {
		t.Fatal("HandlerFor(97) = nil after Register")
	}
	h(97)
	if fired != 97 {
		t.Fatalf("handler saw hwirq %d, want 97", fired)
	}

	// The enable bit must have reached the distributor: hwirq 97 lives in
	// ISENABLER[3] bit 1.
	ereg := uint64(0x1000_0000 + offGICD_ISENABLER + 3*4)
	if got := mmioReadFn(addr.NewVirtAddrCanonical(ereg)); got&(1<<1) == 0 {
		t.Fatalf("ISENABLER[3] = %#x, enable bit for hwirq 97 not set", got)
	}
}

func TestUnregisterReleasesSlot(t *testing.T) {
	d := newTestTable(t)

	d.Register(64, TriggerEdge, func(uint32) {})
	d.Unregister(64)

	if d.HandlerFor(64) != nil {
		t.Fatal("HandlerFor(64) != nil after Unregister")
	}
	if !d.Register(64, TriggerEdge, func(uint32) {}) {
		t.Fatal("Register(64) after Unregister = false, want true")
	}
}

func TestHandlerForRejectsSpuriousAndOutOfRange(t *testing.T) {
	d := newTestTable(t)
	if d.HandlerFor(1023) != nil {
		t.Fatal("HandlerFor(1023) must be nil for a spurious ack value")
	}
	if d.Register(MaxIRQs, TriggerLevel, func(uint32) {}) {
		t.Fatalf("Register(%d) = true, want false for an out-of-range line", MaxIRQs)
	}
	if !IsSpurious(1020) || IsSpurious(1019) {
		t.Fatal("IsSpurious boundary wrong: want true at 1020, false at 1019")
	}
}
