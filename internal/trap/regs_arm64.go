//go:build arm64

package trap

import (
	_ "unsafe"

	"talon/internal/addr"
)

//go:linkname setVBAREL1 setVBAREL1
//go:nosplit
func setVBAREL1(va uintptr)

//go:linkname readFAREL1 readFAREL1
//go:nosplit
func readFAREL1() uint64

// InstallVectorTable points VBAR_EL1 at the linker-provided, 2 KiB-aligned
// vector table symbol (__exception_vectors in the boot linker script).
func InstallVectorTable(vectors uintptr) {
	setVBAREL1(vectors)
}

func init() {
	farFn = func() addr.VirtAddr {
		return addr.NewVirtAddrCanonical(readFAREL1())
	}
}
