//go:build arm64

package bootbuild

import (
	"unsafe"

	"talon/internal/addr"
	"talon/internal/arch"
	"talon/internal/fdt"
	"talon/internal/trap"
	"talon/internal/vmm"
)

// Linker-provided bounds (spec.md §6 "Executable layout"). start_arm64.s
// reads bootStackTopAddr directly; postMMUEntry reads
// linkerExceptionVectors; LinkerLayout reads the rest.
//
//go:linkname bootStackTopAddr __boot_stack_top
var bootStackTopAddr uintptr

//go:linkname linkerBootStart __boot_start
var linkerBootStart uintptr

//go:linkname linkerBootEnd __boot_end
var linkerBootEnd uintptr

//go:linkname linkerBootTableStart __boot_table
var linkerBootTableStart uintptr

//go:linkname linkerBootTableEnd __boot_table_end
var linkerBootTableEnd uintptr

//go:linkname linkerKernelPhysStart __kernel_phys_start
var linkerKernelPhysStart uintptr

//go:linkname linkerKernelPhysEnd __kernel_phys_end
var linkerKernelPhysEnd uintptr

//go:linkname linkerKernelVirtStart __kernel_virt_start
var linkerKernelVirtStart uintptr

//go:linkname linkerKernelVirtEnd __kernel_virt_end
var linkerKernelVirtEnd uintptr

//go:linkname linkerExceptionVectors __exception_vectors
var linkerExceptionVectors uintptr

// LinkerLayout reads the symbols the linker script defines into a Layout
// value, the shape BuildTables consumes. PeripheralBase/PeripheralSize
// come from board_rpi4.go/board_qemuvirt.go, not the linker, since they
// name a fixed SoC MMIO window rather than a link-time symbol.
func LinkerLayout() Layout {
	return Layout{
		BootStart:       addr.NewPhysAddrCanonical(uint64(linkerBootStart)),
		BootEnd:         addr.NewPhysAddrCanonical(uint64(linkerBootEnd)),
		BootTableStart:  addr.NewPhysAddrCanonical(uint64(linkerBootTableStart)),
		BootTableEnd:    addr.NewPhysAddrCanonical(uint64(linkerBootTableEnd)),
		KernelPhysStart: addr.NewPhysAddrCanonical(uint64(linkerKernelPhysStart)),
		KernelPhysEnd:   addr.NewPhysAddrCanonical(uint64(linkerKernelPhysEnd)),
		KernelVirtStart: addr.NewVirtAddrCanonical(uint64(linkerKernelVirtStart)),
		KernelVirtEnd:   addr.NewVirtAddrCanonical(uint64(linkerKernelVirtEnd)),
		PeripheralBase:  addr.NewPhysAddrCanonical(boardPeripheralBase),
		PeripheralSize:  boardPeripheralSize,
	}
}

// elevateAndJump is implemented in start_arm64.s; on success it does not
// return to its caller — ERET hands control to postMMUEntry in EL1 with
// the MMU on.
func elevateAndJump(ttbr, mair, tcr uint64)

// tcrEL1Value encodes TCR_EL1 for a 48-bit VA, 4 KiB granule on both TTBR0
// and TTBR1 (spec.md §4.D step 3): T0SZ=T1SZ=16, TG1 4 KiB granule
// encoding, IPS=0b101 (48-bit PA).
const tcrEL1Value uint64 = (16) | (16 << 16) | (0b10 << 30) | (0b101 << 32)

// bootResult is stashed across the ERET in elevateAndJump: postMMUEntry
// resumes on the same (identity-mapped) stack with Go's ordinary call
// stack gone, so state can only cross that boundary through a package
// global — the single-core, run-once boot sequence spec.md §9 already
// requires this discipline of ("boot stage singleton policy").
var bootResult Result

// KernelMainFn is set by the glue package (component M, `kernel`) from an
// init func, so the hook is established before any boot code runs — the
// same boot-shim-calls-one-Go-symbol handoff gopheros's Kmain uses,
// indirected through a package var per this module's Fn idiom. A nil hook
// leaves postMMUEntry to halt after table setup, useful for bring-up
// before kernel_main exists.
var KernelMainFn func(Result)

// hhdmProjection stashes vmm's default frame projection across the ERET:
// table construction runs with the MMU off, where a physical frame is
// dereferenced at its own address and the higher-half alias does not exist
// yet; postMMUEntry restores the HHDM projection once TTBR1 is live.
var hhdmProjection func(addr.PhysAddr) addr.VirtAddr

// bootMain is invoked by _start once CPU0 has a valid stack. dtb is the
// physical address handed in X0 at reset, still directly dereferenceable
// because the MMU is off (spec.md §4.D "parse FDT memory regions").
func bootMain(dtb uintptr) {
	hhdmProjection = vmm.SetPhysToVirt(func(p addr.PhysAddr) addr.VirtAddr {
		return addr.NewVirtAddrCanonical(p.Value())
	})

	blob := readDTB(dtb)
	tree, err := fdt.Parse(blob)
	if err != nil {
		panic("bootbuild: " + err.Error())
	}

	layout := LinkerLayout()
	layout.DTBPhys = addr.NewPhysAddrCanonical(uint64(dtb))
	result, berr := BuildTables(tree, layout)
	if berr != nil {
		panic("bootbuild: " + berr.Error())
	}
	bootResult = result

	elevateAndJump(uint64(result.Root.Frame), arch.MairEL1Value, tcrEL1Value)
}

// readDTB reads just enough of the header to learn the blob's total size,
// then reslices over the whole thing — avoids assuming any fixed maximum
// DTB size up front.
func readDTB(dtb uintptr) []byte {
	const headerPeek = 8
	head := unsafe.Slice((*byte)(unsafe.Pointer(dtb)), headerPeek)
	totalSize := uint32(head[4])<<24 | uint32(head[5])<<16 | uint32(head[6])<<8 | uint32(head[7])
	return unsafe.Slice((*byte)(unsafe.Pointer(dtb)), totalSize)
}

// postMMUEntry is the ELR_EL2 target elevateAndJump ERETs to: EL1, MMU on,
// running at this function's ordinary (kernel virtual) link address per
// spec.md §4.D step 4. Per spec.md §6 ("Handoff to EL1... VBAR_EL1 =
// __exception_vectors"), the vector table is installed here, first thing
// at EL1, before any code that could take an exception runs. It then
// hands off to KernelMainFn, matching spec.md's control-flow note
// ("parses FDT, builds usable-memory list → kernel_main").
func postMMUEntry() {
	vmm.SetPhysToVirt(hhdmProjection)
	trap.InstallVectorTable(linkerExceptionVectors)
	if KernelMainFn != nil {
		KernelMainFn(bootResult)
	}
	haltForever()
}

func haltForever() {
	for {
		wfe()
	}
}

func wfe()
