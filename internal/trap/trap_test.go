package trap

import "testing"

func TestClassifyDFSC(t *testing.T) {
	cases := []struct {
		dfsc uint32
		want FaultKind
	}{
		{0b00_0000, FaultPageNotPresent},
		{0b00_0011, FaultPageNotPresent},
		{0b00_1001, FaultAccessFlag},
		{0b00_1011, FaultAccessFlag},
		{0b00_1101, FaultPermission},
		{0b00_1111, FaultPermission},
		{0b00_0100, FaultUnhandled},
		{0b11_1111, FaultUnhandled},
	}
	for _, c := range cases {
		if got := ClassifyDFSC(c.dfsc); got != c.want {
			t.Errorf("ClassifyDFSC(%#b) = %v, want %v", c.dfsc, got, c.want)
		}
	}
}

func TestInterruptFrameFieldExtraction(t *testing.T) {
	f := &InterruptFrame{
		ESR: uint64(0x25)<<26 | uint64(0b00_0001),
	}
	if f.EC() != 0x25 {
		t.Fatalf("EC() = %#x, want 0x25", f.EC())
	}
	if f.DFSC() != 0b00_0001 {
		t.Fatalf("DFSC() = %#b, want 0b1", f.DFSC())
	}
	if !IsDataAbort(f.EC()) {
		t.Fatal("expected EC 0x25 to be classified as a data abort")
	}
	if IsSyscall(f.EC()) {
		t.Fatal("EC 0x25 must not be classified as a syscall")
	}
}

func TestDispatchSyncCallsInstalledHandler(t *testing.T) {
	var gotReason Reason
	var gotFrame *InterruptFrame
	SetSyncHandler(func(kind Kind, reason Reason, frame *InterruptFrame) {
		if kind != KindSync {
			t.Fatalf("kind = %v, want KindSync", kind)
		}
		gotReason = reason
		gotFrame = frame
	})
	t.Cleanup(func() { SetSyncHandler(nil) })

	frame := &InterruptFrame{ESR: 1}
	dispatchSyncFn(ReasonLowerAArch64, frame)

	if gotReason != ReasonLowerAArch64 {
		t.Fatalf("reason = %v, want ReasonLowerAArch64", gotReason)
	}
	if gotFrame != frame {
		t.Fatal("handler did not receive the same frame pointer")
	}
}

func TestDispatchIRQCallsInstalledHandler(t *testing.T) {
	var got uint32
	SetIRQHandler(func(hwirq uint32) { got = hwirq })
	t.Cleanup(func() { SetIRQHandler(nil) })

	dispatchIRQFn(97)
	if got != 97 {
		t.Fatalf("hwirq = %d, want 97", got)
	}
}
