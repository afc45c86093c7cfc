//go:build qemuvirt

package uart

import "talon/internal/addr"

// QEMU virt's PL011 is fixed at 0x0900_0000; UARTCLK there is the
// standard 24 MHz PL011 reference clock, giving an IBRD/FBRD pair of
// 13/1 for 115200 baud (24_000_000 / (16*115200) = 13.02).
func init() {
	Base = addr.NewVirtAddrCanonical(0x0900_0000)
	baudIntDiv, baudFracDiv = 13, 1
}
