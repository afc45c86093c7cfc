package irqmutex

import "testing"

func withFakeDAIF(t *testing.T) *int {
	t.Helper()
	savedRead, savedRestore := readAndMaskDAIFFn, restoreDAIFFn
	depth := 0
	readAndMaskDAIFFn = func() uint64 {
		depth++
		return uint64(depth)
	}
	restoreDAIFFn = func(v uint64) {
		depth--
	}
	t.Cleanup(func() {
		readAndMaskDAIFFn, restoreDAIFFn = savedRead, savedRestore
	})
	return &depth
}

// TestLockUnlockRestoresDAIF covers spec.md §8 property 9.
func TestLockUnlockRestoresDAIF(t *testing.T) {
	depth := withFakeDAIF(t)
	m := New(42)

	g := m.Lock()
	if *depth != 1 {
		t.Fatalf("depth after Lock = %d, want 1", *depth)
	}
	g.Unlock()
	if *depth != 0 {
		t.Fatalf("depth after Unlock = %d, want 0", *depth)
	}
}

func TestReentrantLockPanics(t *testing.T) {
	withFakeDAIF(t)
	m := New(0)
	m.Lock()

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on reentrant Lock")
		}
	}()
	m.Lock()
}

func TestTryLockFailsWhenHeld(t *testing.T) {
	depth := withFakeDAIF(t)
	m := New(0)
	g := m.Lock()

	if got := m.TryLock(); got != nil {
		t.Fatal("expected TryLock to fail while held")
	}
	if *depth != 1 {
		t.Fatalf("depth after failed TryLock = %d, want 1 (unchanged)", *depth)
	}
	g.Unlock()

	g2 := m.TryLock()
	if g2 == nil {
		t.Fatal("expected TryLock to succeed once released")
	}
	g2.Unlock()
}

func TestPayloadAccess(t *testing.T) {
	withFakeDAIF(t)
	m := New([]int{1, 2, 3})
	g := m.Lock()
	*g.Payload() = append(*g.Payload(), 4)
	g.Unlock()
	if len(m.payload) != 4 {
		t.Fatalf("payload len = %d, want 4", len(m.payload))
	}
}
