// Package irqmutex implements a spin mutex that masks IRQs for the
// duration of its critical section, the synchronization primitive every
// shared kernel singleton (frame allocator, IRQ chip descriptor table,
// context set) is built on.
//
// The spin half follows gopheros's kernel/sync spinlock (CAS acquire,
// non-blocking try); the DAIF save/restore composition is the one spec.md
// §4.H and §9 call out: drop order is fixed (lock first, DAIF second),
// and a guard type makes that order the only one reachable through the
// API.
package irqmutex

import "sync/atomic"

// readAndMaskDAIFFn / restoreDAIFFn are the arch hooks: read PSTATE.DAIF
// and mask all four of debug, SError, IRQ and FIQ (returning the prior
// value), and restore a previously
// saved DAIF value. Package-level Fn indirection mirrors the rest of the
// module's test idiom so host tests never touch real PSTATE.
var (
	readAndMaskDAIFFn = readAndMaskDAIF
	restoreDAIFFn     = restoreDAIF
)

// Mutex is a spin lock over T. Taking it twice from the same CPU without
// an intervening unlock is a kernel bug: this single-CPU0 target detects it
// via a reentrancy flag and panics, matching spec.md §4.H.
type Mutex[T any] struct {
	locked  atomic.Bool
	holding atomic.Bool
	payload T
}

func New[T any](payload T) *Mutex[T] {
	return &Mutex[T]{payload: payload}
}

// Guard is returned by Lock/TryLock; it owns the saved DAIF state and the
// lock bit. Unlock releases both in the order spec.md §4.H requires: the
// lock bit first, then the DAIF bit restore.
type Guard[T any] struct {
	m        *Mutex[T]
	daif     uint64
	released bool
}

// Payload gives the guard holder access to the protected value.
func (g *Guard[T]) Payload() *T { return &g.m.payload }

// Unlock releases the lock then restores the prior DAIF state.
func (g *Guard[T]) Unlock() {
	if g.released {
		panic("irqmutex: Unlock called on an already-released guard")
	}
	g.released = true
	g.m.locked.Store(false)
	g.m.holding.Store(false)
	restoreDAIFFn(g.daif)
}

// Lock disables IRQs, then spins until the lock is acquired. Reentering
// from the CPU that already holds it is a kernel bug (spec.md §4.H: "the
// core logs and panics").
func (m *Mutex[T]) Lock() *Guard[T] {
	daif := readAndMaskDAIFFn()
	if m.holding.Load() {
		panic("irqmutex: reentrant Lock on the same CPU")
	}
	for !m.locked.CompareAndSwap(false, true) {
		cpuPause()
	}
	m.holding.Store(true)
	return &Guard[T]{m: m, daif: daif}
}

// TryLock never blocks: on contention — including the degenerate case of
// the calling CPU already holding the lock — it restores DAIF and returns
// nil rather than panicking (spec.md §4.H/§8 property 9 distinguish this
// from Lock, which treats reentrance as a kernel bug).
func (m *Mutex[T]) TryLock() *Guard[T] {
	daif := readAndMaskDAIFFn()
	if m.holding.Load() || !m.locked.CompareAndSwap(false, true) {
		restoreDAIFFn(daif)
		return nil
	}
	m.holding.Store(true)
	return &Guard[T]{m: m, daif: daif}
}
