package pmm

import "talon/internal/addr"

// BumpFrameAllocator walks a slice of usable memory-map entries, advancing a
// byte cursor within the current entry and moving to the next entry when the
// current one is exhausted. It is the allocator KernelFrameAllocator
// resolves to at startup (spec.md §4.B); the core never calls Free against
// it — Free always returns an error rather than silently no-op'ing, so a
// stray call surfaces immediately instead of leaking.
type BumpFrameAllocator struct {
	entries []MemMapEntry
	// entryIdx/cursor track the allocator's position; cursor is a byte
	// offset within entries[entryIdx].
	entryIdx int
	cursor   uint64
}

var ErrBumpFreeUnsupported = newErr("bump allocator does not support free")

// NewBumpFrameAllocator takes ownership of a (caller-retained) slice of
// usable entries; it does not copy, matching the write-once MemMapEntries
// publication contract.
func NewBumpFrameAllocator(usable []MemMapEntry) *BumpFrameAllocator {
	return &BumpFrameAllocator{entries: usable}
}

func (b *BumpFrameAllocator) Allocate(count addr.FrameCount) (addr.PhysAddr, *pmmError) {
	need := count.Bytes()
	for b.entryIdx < len(b.entries) {
		e := b.entries[b.entryIdx]
		avail := e.Size.Bytes()
		if b.cursor+need <= avail {
			base := addr.PhysAddr(e.Base.Value() + b.cursor)
			b.cursor += need
			zeroFramesFn(base, count)
			return base, nil
		}
		// Current entry can't satisfy the request: move on and retry,
		// per spec.md §4.B — never attempt to split across entries.
		b.entryIdx++
		b.cursor = 0
	}
	return 0, ErrOutOfMemory
}

func (b *BumpFrameAllocator) AllocateOne() (addr.PhysAddr, *pmmError) {
	return b.Allocate(1)
}

func (b *BumpFrameAllocator) Free(addr.PhysAddr, addr.FrameCount) *pmmError {
	return ErrBumpFreeUnsupported
}
