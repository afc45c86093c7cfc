// Package addrspace implements the per-task address-space abstraction:
// shared, read-write-locked ownership of a page table, and the
// current/next per-CPU slots the switcher's post-switch hook consults.
//
// Implements the Arc-like shared-ownership + RWMutex shape spec.md
// §3/§4.J name (shared handles via ordinary Go references, a read-write
// lock around the table), wired to internal/vmm's PageTable/Kind types.
package addrspace

import (
	"sync"

	"talon/internal/addr"
	"talon/internal/vmm"
)

// AddrSpace owns exactly one page table. It is never copied; every holder
// keeps a *AddrSpaceLock (itself reference-counted by ordinary Go garbage
// collection, which supplies the Arc-like shared ownership spec.md §3
// calls for without a manual refcount).
type AddrSpace struct {
	table vmm.PageTable
}

// AddrSpaceLock is AddrSpace wrapped in a read-write lock: readers (page
// faults doing a translate()) take RLock; writers (map_to during a task's
// own setup) take Lock.
type AddrSpaceLock struct {
	mu sync.RWMutex
	as AddrSpace
}

// NewUser creates a fresh user-kind L0 table via PageTable.Create, per
// spec.md §4.J new_user().
func NewUser(alloc vmm.FrameAllocatorFn) (*AddrSpaceLock, error) {
	table, err := vmm.Create(vmm.KindUser, alloc)
	if err != nil {
		return nil, err
	}
	return &AddrSpaceLock{as: AddrSpace{table: table}}, nil
}

// currentKernel is the process-wide singleton backing CurrentKernel();
// it starts as the zero PageTable (frame 0, a genuinely invalid table)
// until AdoptCurrentKernel runs post-paging.
var currentKernel = &AddrSpaceLock{as: AddrSpace{table: vmm.PageTable{Kind: vmm.KindKernel}}}

// CurrentKernel returns the kernel address space last published by
// AdoptCurrentKernel; it does not read TTBR1, so a root loaded into TTBR1
// by any other path is not reflected here. Before AdoptCurrentKernel
// runs, this silently reports the zero-frame
// placeholder table (spec.md §9 open question: "the source silently
// captures zero" — the same choice is made here rather than guessing a
// richer pre-paging semantics that doesn't exist yet).
func CurrentKernel() *AddrSpaceLock { return currentKernel }

// AdoptCurrentKernel publishes the boot builder's finished root table as
// the kernel address space, called exactly once from kernel_main after
// the MMU is live.
func AdoptCurrentKernel(root addr.PhysAddr) {
	currentKernel.mu.Lock()
	defer currentKernel.mu.Unlock()
	currentKernel.as.table = vmm.PageTable{Frame: root, Level: 4, Kind: vmm.KindKernel}
}

// RLock/RUnlock and Lock/Unlock expose the read-write lock directly;
// callers that only need to translate() take RLock, callers mutating the
// table (map_to/remap_to) take Lock.
func (l *AddrSpaceLock) RLock()   { l.mu.RLock() }
func (l *AddrSpaceLock) RUnlock() { l.mu.RUnlock() }
func (l *AddrSpaceLock) Lock()    { l.mu.Lock() }
func (l *AddrSpaceLock) Unlock()  { l.mu.Unlock() }

// Table returns the underlying PageTable; callers must hold RLock or Lock.
func (l *AddrSpaceLock) Table() vmm.PageTable { return l.as.table }

// TableRoot and IsUser satisfy sched.AddrSpaceRef so a *AddrSpaceLock can
// be stored directly in a Context without sched importing this package.
func (l *AddrSpaceLock) TableRoot() uint64 { return l.as.table.Frame.Value() }
func (l *AddrSpaceLock) IsUser() bool      { return l.as.table.Kind == vmm.KindUser }

// perCPU is the single CPU0 slot pair the switcher's post-switch hook
// consults; spec.md's Non-goals exclude SMP.
type perCPU struct {
	current *AddrSpaceLock
	next    *AddrSpaceLock
}

var cpu0 perCPU

// Current returns the address space presently installed for this CPU.
func Current() *AddrSpaceLock { return cpu0.current }

// SetNext stages the address space the next context switch should
// install; the switcher's post-switch hook commits it to Current once the
// actual page-table swap (TTBR load + TLB invalidate) completes.
func SetNext(as *AddrSpaceLock) { cpu0.next = as }

// Next returns the staged address space set by SetNext.
func Next() *AddrSpaceLock { return cpu0.next }

// Commit publishes Next() as Current(), called from the switch_finish_hook
// after the arch-specific TTBR swap has actually happened.
func Commit() { cpu0.current = cpu0.next }
