//go:build arm64

package vmm

import _ "unsafe" // for go:linkname

// TLB maintenance and barrier primitives, implemented in tlb_arm64.s.
// Linked the way iansmith-mazarin links its MMIO/delay primitives from
// lib.s: a //go:linkname'd zero-body Go declaration naming the real asm
// symbol.

//go:linkname tlbiVAAE1IS tlbiVAAE1IS
//go:nosplit
func tlbiVAAE1IS(va uint64)

//go:linkname tlbiVMALLE1IS tlbiVMALLE1IS
//go:nosplit
func tlbiVMALLE1IS()

//go:linkname dsbISH dsbISH
//go:nosplit
func dsbISH()

//go:linkname isb isb
//go:nosplit
func isb()
