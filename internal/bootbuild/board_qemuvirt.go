//go:build qemuvirt

package bootbuild

// QEMU's virt machine maps its GICv2 distributor/CPU-interface pair at
// 0x0800_0000 and its PL011 at 0x0900_0000 (kernel/uart/qemu_uart.go);
// both are bare physical addresses used directly as virtual ones, the
// same identity-addressing convention rpi_uart.go uses for the Pi 4. A
// 32 MiB identity window starting at the GIC's base covers both, the
// same window size spec.md §4.D step 2 names for the Pi 4's peripheral
// range.
func init() {
	boardPeripheralBase = 0x0800_0000
	boardPeripheralSize = 32 * 1024 * 1024
}
