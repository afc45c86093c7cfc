//go:build qemuvirt

package mbox

import "talon/internal/addr"

// QEMU's virt machine has no BCM283x mailbox device; the framebuffer path
// on this platform goes through ramfb/virtio instead (out of this core's
// scope — spec.md §1 places the framebuffer's full driver stack outside
// the kernel core). Base is left at its zero value and Call fails fast
// rather than faulting against unmapped MMIO, matching the _unsupported.go
// stub style the teacher uses for a missing build tag.
func init() {
	Base = addr.VirtAddr(0)
}
