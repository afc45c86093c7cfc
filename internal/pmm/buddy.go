package pmm

import "talon/internal/addr"

// maxOrder bounds block sizes at 2^maxOrder frames (4 GiB worth of frames
// at order 20); orders above what any single usable entry can supply are
// simply never populated.
const maxOrder = 20

// BuddyFrameAllocator maintains power-of-two frame blocks over the same
// usable entries the bump allocator consumes, and (unlike the bump
// allocator) supports Free. It is kept in reserve per spec.md §4.B — nothing
// in this core's boot path switches to it; see DESIGN.md's Open Questions
// resolution.
type BuddyFrameAllocator struct {
	// freeLists[order] holds the base addresses of free blocks at that
	// order.
	freeLists [maxOrder + 1][]addr.PhysAddr
}

// NewBuddyFrameAllocator partitions each usable entry into the largest
// aligned power-of-two blocks it can hold and seeds the free lists.
func NewBuddyFrameAllocator(usable []MemMapEntry) *BuddyFrameAllocator {
	b := &BuddyFrameAllocator{}
	for _, e := range usable {
		base := e.Base.Value()
		remaining := e.Size.FrameIndex()
		for remaining > 0 {
			order := buddyOrderFor(base, remaining)
			blockFrames := uint64(1) << order
			b.freeLists[order] = append(b.freeLists[order], addr.PhysAddr(base))
			base += blockFrames * pageSize
			remaining -= blockFrames
		}
	}
	return b
}

const pageSize = 4096

// buddyOrderFor picks the largest order whose block is both aligned to its
// own size (in frames) and fits within remaining frames.
func buddyOrderFor(base, remainingFrames uint64) int {
	order := maxOrder
	for order > 0 {
		blockFrames := uint64(1) << order
		blockBytes := blockFrames * pageSize
		if remainingFrames >= blockFrames && base%blockBytes == 0 {
			break
		}
		order--
	}
	return order
}

func orderFor(count addr.FrameCount) int {
	frames := uint64(count)
	if frames == 0 {
		frames = 1
	}
	order := 0
	for (uint64(1) << order) < frames {
		order++
	}
	return order
}

func (b *BuddyFrameAllocator) Allocate(count addr.FrameCount) (addr.PhysAddr, *pmmError) {
	order := orderFor(count)
	if order > maxOrder {
		return 0, ErrOutOfMemory
	}
	base, err := b.allocOrder(order)
	if err != nil {
		return 0, err
	}
	zeroFramesFn(base, addr.FrameCount(uint64(1)<<order))
	return base, nil
}

func (b *BuddyFrameAllocator) allocOrder(order int) (addr.PhysAddr, *pmmError) {
	if len(b.freeLists[order]) > 0 {
		n := len(b.freeLists[order])
		base := b.freeLists[order][n-1]
		b.freeLists[order] = b.freeLists[order][:n-1]
		return base, nil
	}
	if order >= maxOrder {
		return 0, ErrOutOfMemory
	}
	// Split the next order up into two buddies of this order.
	base, err := b.allocOrder(order + 1)
	if err != nil {
		return 0, err
	}
	blockBytes := (uint64(1) << order) * pageSize
	buddy := addr.PhysAddr(base.Value() + blockBytes)
	b.freeLists[order] = append(b.freeLists[order], buddy)
	return base, nil
}

func (b *BuddyFrameAllocator) AllocateOne() (addr.PhysAddr, *pmmError) {
	return b.Allocate(1)
}

// Free returns a block to its free list and coalesces with its buddy when
// the buddy is also free, walking up orders until no further merge is
// possible.
func (b *BuddyFrameAllocator) Free(base addr.PhysAddr, count addr.FrameCount) *pmmError {
	order := orderFor(count)
	cur := base.Value()
	for order < maxOrder {
		blockBytes := (uint64(1) << order) * pageSize
		buddyAddr := cur ^ blockBytes
		idx := b.indexOfFree(order, buddyAddr)
		if idx < 0 {
			break
		}
		// Remove the buddy from its free list and move up one order.
		b.freeLists[order] = append(b.freeLists[order][:idx], b.freeLists[order][idx+1:]...)
		if buddyAddr < cur {
			cur = buddyAddr
		}
		order++
	}
	b.freeLists[order] = append(b.freeLists[order], addr.PhysAddr(cur))
	return nil
}

func (b *BuddyFrameAllocator) indexOfFree(order int, phys uint64) int {
	for i, p := range b.freeLists[order] {
		if p.Value() == phys {
			return i
		}
	}
	return -1
}
