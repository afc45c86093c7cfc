package vmm

import (
	"runtime"

	"talon/internal/addr"
)

// invalidatePageFn and invalidateAllFn are the TLB-invalidate hooks: single
// page (TLBI VAAE1IS) and whole address space (TLBI VMALLE1IS), each
// followed by the DSB/ISB barrier sequence spec.md §4.C's flush semantics
// describe. Package-level Fn indirection mirrors gopheros's
// flushTLBEntryFn so host tests can swap in a recording fake instead of
// issuing real TLBI instructions on a development machine.
var (
	invalidatePageFn = invalidatePage
	invalidateAllFn  = invalidateAll
)

// Flush is a must-consume token returned by every mutating table operation.
// Exactly one of Flush, FlushAll, or Ignore must be called on it; the
// linear-resource guarantee spec.md §4.C and Design Notes §9 call for is
// approximated in Go with a finalizer that panics if the token is dropped
// unconsumed, since Go has no affine-type enforcement at compile time.
type Flush struct {
	virt     addr.VirtAddr
	all      bool
	consumed bool
}

func newPageFlush(v addr.VirtAddr) *Flush {
	f := &Flush{virt: v}
	runtime.SetFinalizer(f, (*Flush).finalize)
	return f
}

func newAllFlush() *Flush {
	f := &Flush{all: true}
	runtime.SetFinalizer(f, (*Flush).finalize)
	return f
}

func (f *Flush) finalize() {
	if !f.consumed {
		panic("vmm: Flush token dropped without Flush/FlushAll/Ignore")
	}
}

// Flush invalidates exactly the one page this token covers (PageFlush).
func (f *Flush) Flush() {
	f.mustNotBeAll()
	invalidatePageFn(f.virt)
	f.consume()
}

// FlushAll invalidates the entire TLB (PageFlushAll) — used for block or
// range changes regardless of which single-page token shape this was
// constructed as, matching map.go's range helpers that batch many changes
// under one eventual FlushAll.
func (f *Flush) FlushAll() {
	invalidateAllFn()
	f.consume()
}

// Ignore discards the token without invalidating anything, for bulk setups
// where the caller will run an explicit FlushAll afterward.
func (f *Flush) Ignore() {
	f.consume()
}

func (f *Flush) mustNotBeAll() {
	if f.all {
		panic("vmm: Flush() called on a range/all flush token; use FlushAll()")
	}
}

func (f *Flush) consume() {
	f.consumed = true
	runtime.SetFinalizer(f, nil)
}

func invalidatePage(v addr.VirtAddr) {
	tlbiVAAE1IS(uint64(v.Value()))
	dsbISH()
	isb()
}

func invalidateAll() {
	tlbiVMALLE1IS()
	dsbISH()
	isb()
}
