//go:build rpi4

package mbox

import "talon/internal/addr"

// BCM2711's mailbox 0 (ARM-to-VC) sits at peripheral-base + 0xB880, the
// register block framebuffer.go's gpuInit talks to on the teacher's board.
const peripheralBase = 0xFE00_0000

func init() {
	Base = addr.NewVirtAddrCanonical(peripheralBase + 0xB880)
}
