//go:build rpi4

package bootbuild

// BCM2711's peripheral block (kernel/uart's UART0, kernel/mbox's mailbox 0)
// sits at PERIPHERAL_BASE = 0xFE00_0000, the same constant named in
// kernel/uart/rpi_uart.go and kernel/mbox/rpi_mbox.go; both compute their
// MMIO base as a bare physical address used directly as a virtual one, so
// this identity window is what keeps them valid once the MMU is on.
// spec.md §4.D step 2 names this exact range.
func init() {
	boardPeripheralBase = 0xFE00_0000
	boardPeripheralSize = 32 * 1024 * 1024
}
