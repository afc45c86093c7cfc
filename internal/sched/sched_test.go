package sched

import "testing"

// resetSchedState clears every package-level scheduling global between
// tests; the package otherwise models a single CPU's singleton state.
func resetSchedState(t *testing.T) {
	t.Helper()
	contextsMu.Lock()
	contexts = nil
	contextsMu.Unlock()
	cpu0 = cpuState{}
	switchLock.Store(false)
	t.Cleanup(func() {
		contextsMu.Lock()
		contexts = nil
		contextsMu.Unlock()
		cpu0 = cpuState{}
		switchLock.Store(false)
	})
}

func withFakeSwitchTo(t *testing.T) *int {
	t.Helper()
	calls := 0
	saved := switchToFn
	switchToFn = func(prev, next *ArchContext) {
		calls++
		// A real switch_to would jump onto next's stack and call
		// SwitchFinishHook from there; the host-test fake runs it
		// inline since there is no real stack to swap.
		SwitchFinishHook()
	}
	t.Cleanup(func() { switchToFn = saved })
	return &calls
}

// TestSwitchRoundTripScenarioS6 covers spec.md §8 scenario S6: two
// contexts A (running) and B (runnable); one switch() yields Switched,
// flips running, and a second switch() restores A.
func TestSwitchRoundTripScenarioS6(t *testing.T) {
	resetSchedState(t)
	withFakeSwitchTo(t)

	a := &Context{PID: 1, Status: StatusRunnable}
	b := &Context{PID: 2, Status: StatusRunnable}
	Register(a)
	Register(b)
	SetCurrent(a)

	if res := Switch(); res != Switched {
		t.Fatalf("first Switch() = %v, want Switched", res)
	}
	if !b.Running() || a.Running() {
		t.Fatalf("after first switch: a.running=%v b.running=%v, want false/true", a.Running(), b.Running())
	}
	if Current() != b {
		t.Fatal("Current() should be b after first switch")
	}

	if res := Switch(); res != Switched {
		t.Fatalf("second Switch() = %v, want Switched", res)
	}
	if !a.Running() || b.Running() {
		t.Fatalf("after second switch: a.running=%v b.running=%v, want true/false", a.Running(), b.Running())
	}
}

// TestSwitchNeverPicksAlreadyRunningContext covers spec.md §8 property 10.
func TestSwitchNeverPicksAlreadyRunningContext(t *testing.T) {
	resetSchedState(t)
	withFakeSwitchTo(t)

	a := &Context{PID: 1, Status: StatusRunnable}
	b := &Context{PID: 2, Status: StatusRunnable}
	c := &Context{PID: 3, Status: StatusRunnable}
	Register(a)
	Register(b)
	Register(c)
	SetCurrent(a)
	b.running.Store(true) // pretend b is (impossibly) already running elsewhere

	Switch()
	if Current() != c {
		t.Fatalf("Current() = %p, want c (b must be skipped while running)", Current())
	}
}

// TestSwitchFallsBackToIdle covers the idle-fallback half of property 10.
func TestSwitchFallsBackToIdle(t *testing.T) {
	resetSchedState(t)
	withFakeSwitchTo(t)

	a := &Context{PID: 1, Status: StatusRunnable}
	idle := &Context{PID: 0, Status: StatusRunnable}
	Register(a)
	Register(idle)
	SetIdle(idle)
	SetCurrent(a)
	// No other runnable context besides a (current) and idle.
	a.Status = StatusBlocked

	res := Switch()
	if res != Switched {
		t.Fatalf("Switch() = %v, want Switched (idle fallback)", res)
	}
	if Current() != idle {
		t.Fatal("expected fallback to the idle context")
	}
}

// TestSwitchAllIdleWhenNothingRunnable covers the AllIdle outcome.
func TestSwitchAllIdleWhenNothingRunnable(t *testing.T) {
	resetSchedState(t)
	withFakeSwitchTo(t)

	a := &Context{PID: 1, Status: StatusBlocked}
	Register(a)
	SetCurrent(a)

	if res := Switch(); res != AllIdle {
		t.Fatalf("Switch() = %v, want AllIdle", res)
	}
}

// TestAddrSpaceSwapRunsOnlyWhenDifferent exercises the post-switch hook's
// idempotence guarantee (spec.md §4.I ordering guarantee (c)).
func TestAddrSpaceSwapRunsOnlyWhenDifferent(t *testing.T) {
	resetSchedState(t)
	withFakeSwitchTo(t)

	calls := 0
	SetAddrSpaceSwapper(func(next AddrSpaceRef) { calls++ })
	t.Cleanup(func() { SetAddrSpaceSwapper(nil) })

	shared := fakeAddrSpace{root: 1}
	a := &Context{PID: 1, Status: StatusRunnable, AddrSpace: shared}
	b := &Context{PID: 2, Status: StatusRunnable, AddrSpace: shared}
	Register(a)
	Register(b)
	SetCurrent(a)
	cpu0.currentAS = shared

	Switch()
	if calls != 0 {
		t.Fatalf("expected no address-space swap when AddrSpace is unchanged, got %d calls", calls)
	}
}

type fakeAddrSpace struct{ root uint64 }

func (f fakeAddrSpace) TableRoot() uint64 { return f.root }
func (f fakeAddrSpace) IsUser() bool      { return false }
