//go:build rpi4

package uart

import "talon/internal/addr"

// BCM2711's UART0 sits at peripheral-base + 0x20_1000; the teacher's
// kernel.go names PERIPHERAL_BASE = 0xFE00_0000 for the Pi 4 (it was
// 0x3F00_0000 on the Pi 2/3). IBRD=1, FBRD=40 is the 115200-baud pair for
// a 3 MHz UARTCLK (3_000_000 / (16*115200) ≈ 1.63); at the nominal 48 MHz
// UARTCLK the divisor would be ≈ 26.04 instead. The teacher's constants
// assume the GPU firmware has already rebased UARTCLK to 3 MHz; kept
// as-is since it matches observed hardware behavior rather than the
// naive clock-tree computation.
const peripheralBase = 0xFE00_0000

func init() {
	Base = addr.NewVirtAddrCanonical(peripheralBase + 0x20_1000)
	platformInitFn = muxGPIO14And15
	baudIntDiv, baudFracDiv = 1, 40
}

// muxGPIO14And15 follows the teacher's uartInit GPIO sequence: clear
// GPPUD, wait, clock it into GPIO14/15, wait, clear the clock.
func muxGPIO14And15() {
	gpio := addr.NewVirtAddrCanonical(peripheralBase + 0x20_0000)
	gppud := gpio.AddBytes(0x94)
	gppudclk0 := gpio.AddBytes(0x98)

	mmioWriteGPIO(gppud, 0)
	delay(150)
	mmioWriteGPIO(gppudclk0, (1<<14)|(1<<15))
	delay(150)
	mmioWriteGPIO(gppudclk0, 0)
}

func mmioWriteGPIO(v addr.VirtAddr, val uint32) {
	if err := addr.WriteVolatile[uint32](v, val); err != nil {
		panic("uart: " + err.Error())
	}
}

// delay is a crude busy-wait; the teacher's GPIO mux sequence just needs
// a few microseconds of settle time, not a calibrated timer.
func delay(cycles int) {
	for i := 0; i < cycles; i++ {
	}
}
