// Package kheap implements the kernel heap: a best-fit, doubly-linked
// free-list allocator over the fixed [KERNEL_HEAP_START, +64 MiB) virtual
// range, given to the allocator only after the boot builder has mapped it
// RW/NX with freshly allocated frames.
//
// Grounded directly on iansmith-mazarin's heap.go (heapSegment's
// next/prev/isAllocated header fields, the best-fit kmalloc walk with
// tail splitting, and kfree's coalescing of adjacent free segments),
// generalized from its fixed region to the 64 MiB range and
// VirtAddr-typed bookkeeping spec.md §4.K specifies, with the teacher's
// bidirectional merge simplified to forward-only coalescing.
package kheap

import (
	"unsafe"

	"talon/internal/addr"
)

// HeapSize is the fixed span of the kernel heap's virtual range.
const HeapSize = 64 * 1024 * 1024

const heapAlignment = 16

// segment is placed at the start of every block, allocated or free.
type segment struct {
	next, prev *segment
	allocated  bool
	size       uint32
}

// segmentHeaderSize is computed rather than hardcoded: struct padding
// varies with field order and pointer width, and this layout is unsafe
// to guess at.
var segmentHeaderSize = uint32(unsafe.Sizeof(segment{}))

var (
	head     *segment
	rangeLow, rangeHigh addr.VirtAddr
	ready    bool
)

// Init gives the allocator its backing range; it must already be mapped
// RW/NX. Called once from kernel_main_post_paging (spec.md §4.K).
func Init(start addr.VirtAddr, size uint64) {
	rangeLow = start
	rangeHigh = start.AddBytes(size)

	head = (*segment)(unsafe.Pointer(uintptr(start.Value())))
	*head = segment{size: uint32(size)}
	ready = true
}

// Ready reports whether Init has run.
func Ready() bool { return ready }

func alignUp(n uint32, align uint32) uint32 {
	return (n + align - 1) &^ (align - 1)
}

// Alloc finds the best-fitting free segment (smallest sufficient size,
// teacher's best-fit policy) and splits it if the remainder is itself big
// enough to host a new free segment header.
func Alloc(size uint32) unsafe.Pointer {
	if !ready {
		return nil
	}
	total := alignUp(size+segmentHeaderSize, heapAlignment)

	var best *segment
	bestDiff := ^uint32(0)
	for cur := head; cur != nil; cur = cur.next {
		if cur.allocated || cur.size < total {
			continue
		}
		diff := cur.size - total
		if diff < bestDiff {
			best, bestDiff = cur, diff
		}
	}
	if best == nil {
		return nil
	}

	if bestDiff >= segmentHeaderSize+heapAlignment {
		splitOff(best, total)
	}
	best.allocated = true
	return unsafe.Add(unsafe.Pointer(best), segmentHeaderSize)
}

// splitOff carves a new free segment out of the tail of seg once seg's
// allocation is fixed at newSize bytes (header included).
func splitOff(seg *segment, newSize uint32) {
	tail := (*segment)(unsafe.Add(unsafe.Pointer(seg), newSize))
	*tail = segment{
		next: seg.next,
		prev: seg,
		size: seg.size - newSize,
	}
	if tail.next != nil {
		tail.next.prev = tail
	}
	seg.next = tail
	seg.size = newSize
}

// Free marks the segment owning ptr as free and coalesces with an
// immediately-following free neighbor (a capability the teacher's
// never-freed 1 MiB heap didn't need).
func Free(ptr unsafe.Pointer) {
	if ptr == nil || !ready {
		return
	}
	seg := (*segment)(unsafe.Add(ptr, -int(segmentHeaderSize)))
	seg.allocated = false
	coalesceForward(seg)
}

func coalesceForward(seg *segment) {
	for seg.next != nil && !seg.next.allocated {
		n := seg.next
		seg.size += n.size
		seg.next = n.next
		if n.next != nil {
			n.next.prev = seg
		}
	}
}
