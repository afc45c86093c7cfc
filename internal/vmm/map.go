package vmm

import (
	"talon/internal/addr"
	"talon/internal/arch"
)

// walkToLeaf descends from the root to the table that owns the terminal
// entry for virt at the given block size's level, creating intermediate
// tables as it goes via NextTableCreate.
func (t PageTable) walkToLeaf(virt addr.VirtAddr, bs BlockSize, alloc FrameAllocatorFn) (PageTable, uint64, *vmmError) {
	targetLevel := levelForBlockSize(bs)
	cur := t
	for cur.Level > targetLevel {
		idx := virt.PageTableIndex(cur.Level)
		next, err := cur.NextTableCreate(idx, 0, alloc)
		if err != nil {
			return PageTable{}, 0, err
		}
		cur = next
	}
	return cur, virt.PageTableIndex(targetLevel), nil
}

// terminalFlags composes the flag word for a leaf entry at the given block
// size: a 4 KiB leaf is a "page" (FlagNonBlock set, as the level 1 page
// descriptor format requires; pte.go's isHuge looks only at this bit, so a
// page reads as non-huge); a 2 MiB/1 GiB leaf clears FlagNonBlock and is a
// true block mapping.
func terminalFlags(bs BlockSize, flags uint64) uint64 {
	base := arch.FlagPresent | arch.FlagAccess | flags
	if bs == Block4KiB {
		return base | arch.FlagNonBlock
	}
	return base &^ arch.FlagNonBlock
}

// MapTo installs a single mapping at the given block size, failing with
// *PageAlreadyMappedError if the terminal entry is already in use.
func (t PageTable) MapTo(virt addr.VirtAddr, phys addr.PhysAddr, bs BlockSize, flags uint64, alloc FrameAllocatorFn) (*Flush, error) {
	leaf, idx, err := t.walkToLeaf(virt, bs, alloc)
	if err != nil {
		return nil, err
	}
	entries := leaf.entries()
	if entries[idx] != Unused {
		return nil, &PageAlreadyMappedError{Virt: virt, Entry: entries[idx]}
	}
	var e PageTableEntry
	e.SetEntry(phys, terminalFlags(bs, flags))
	entries[idx] = e
	return flushFor(virt, bs), nil
}

// RemapTo is MapTo without the already-mapped check: it always overwrites.
func (t PageTable) RemapTo(virt addr.VirtAddr, phys addr.PhysAddr, bs BlockSize, flags uint64, alloc FrameAllocatorFn) (*Flush, *vmmError) {
	leaf, idx, err := t.walkToLeaf(virt, bs, alloc)
	if err != nil {
		return nil, err
	}
	var e PageTableEntry
	e.SetEntry(phys, terminalFlags(bs, flags))
	leaf.entries()[idx] = e
	return flushFor(virt, bs), nil
}

// flushFor picks PageFlush for a single 4 KiB change and PageFlushAll for a
// block change, per spec.md §4.C flush semantics.
func flushFor(virt addr.VirtAddr, bs BlockSize) *Flush {
	if bs == Block4KiB {
		return newPageFlush(virt)
	}
	return newAllFlush()
}

// MapRange maps [virt, virt+size) to [phys, phys+size), picking the largest
// block size compatible with alignment and remaining size at each step
// (spec.md §4.C kernel range helpers / §8 property 6), then invalidates the
// whole TLB once for the batch; no Flush token is returned.
func (t PageTable) MapRange(virt addr.VirtAddr, phys addr.PhysAddr, size uint64, flags uint64, alloc FrameAllocatorFn) error {
	remaining := size
	v, p := virt, phys
	for remaining > 0 {
		bs := LargestBlockSize(p, v, remaining)
		leaf, idx, err := t.walkToLeaf(v, bs, alloc)
		if err != nil {
			return err
		}
		var e PageTableEntry
		e.SetEntry(p, terminalFlags(bs, flags))
		leaf.entries()[idx] = e

		v = v.AddBytes(uint64(bs))
		p = p.AddBytes(uint64(bs))
		remaining -= uint64(bs)
	}
	newAllFlush().FlushAll()
	return nil
}

// Translate descends levels 4→3→2→1 via NextTable, returning the leaf entry.
// A NoNextTable error anywhere in the walk means "unmapped" at the
// callsite; a huge block encountered above level 1 returns the entry at the
// level where it terminates so callers can still inspect its flags.
func (t PageTable) Translate(virt addr.VirtAddr) (PageTableEntry, *vmmError) {
	cur := t
	for cur.Level > arch.LevelLeaf {
		idx := virt.PageTableIndex(cur.Level)
		entries := cur.entries()
		e := entries[idx]
		if e == Unused {
			return Unused, ErrNoNextTable
		}
		if e.IsHuge() {
			return e, nil
		}
		next, err := cur.NextTable(idx)
		if err != nil {
			return Unused, err
		}
		cur = next
	}
	idx := virt.PageTableIndex(arch.LevelLeaf)
	e := cur.entries()[idx]
	if !e.IsPresent() {
		return Unused, ErrPageNotPresent
	}
	return e, nil
}
