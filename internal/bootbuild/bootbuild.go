// Package bootbuild implements the MMU-off boot stage spec.md §4.D
// describes: build the identity + higher-half (HHDM) + kernel + device
// mappings with a bump allocator over a reserved `.boot_table` region,
// program EL1's MAIR/TCR/HCR/SPSR/TTBR registers, and hand off to
// `boot_higher_half` in EL1 with the MMU on.
//
// Grounded on iansmith-mazarin's mazboot mmu.go page-table bring-up
// (mapPage/mapRegion, enableMMU's MAIR/TCR/TTBR/SCTLR sequence) with
// memory.go's linker-symbol access and dtb_qemu.go's device-tree walk for
// locating RAM; generalized onto this core's internal/vmm four-level
// abstraction instead of the teacher's hand-rolled descriptor pokes, and
// onto internal/fdt instead of the teacher's hardcoded board constants.
package bootbuild

import (
	"talon/internal/addr"
	"talon/internal/arch"
	"talon/internal/fdt"
	"talon/internal/pmm"
	"talon/internal/vmm"
)

type bootError struct{ msg string }

func (e *bootError) Error() string { return e.msg }
func newErr(msg string) *bootError { return &bootError{msg} }

var (
	ErrNoMemoryNode  = newErr("bootbuild: no /memory node in FDT")
	ErrRegionOverlap = newErr("bootbuild: kernel/boot region overlaps reported memory in an unexpected way")
)

// hhdmSpan is the fixed 4 GiB window spec.md §4.D step 2 names for the
// HHDM alias. dtbWindow is the fixed 32 MiB window it names for the
// flattened-device-tree identity map.
const (
	hhdmSpan  = uint64(4) * 1024 * 1024 * 1024
	dtbWindow = uint64(32) * 1024 * 1024
)

// boardPeripheralBase/boardPeripheralSize name the active board's MMIO
// identity window; board_rpi4.go/board_qemuvirt.go set them from an init
// func, the same way kernel/uart's and kernel/mbox's board files set their
// own package-level Base var. Left at zero (LinkerLayout's PeripheralSize
// stays 0, so BuildTables skips the mapping) when neither board tag is
// given.
var (
	boardPeripheralBase uint64
	boardPeripheralSize uint64
)

// Region names one contiguous span of physical memory for the boot table
// builder's identity/HHDM mapping pass.
type Region struct {
	Base addr.PhysAddr
	Size uint64
}

// Layout is the set of symbols the linker script defines (spec.md §6
// "Executable layout"); bootbuild takes them as plain values rather than
// reading them from the linker itself, since Go has no way to reference
// linker symbols except through //go:linkname'd zero-sized variables the
// boot shim resolves at link time.
type Layout struct {
	BootStart, BootEnd         addr.PhysAddr
	BootTableStart, BootTableEnd addr.PhysAddr
	KernelPhysStart, KernelPhysEnd addr.PhysAddr
	KernelVirtStart, KernelVirtEnd addr.VirtAddr

	// PeripheralBase/PeripheralSize name the board's MMIO window (spec.md
	// §4.D step 2's "peripheral base 0xFE00_0000 .. +32 MiB"), populated
	// per board build tag by LinkerLayout. Zero PeripheralSize (the host
	// test default) skips the identity mapping entirely.
	PeripheralBase addr.PhysAddr
	PeripheralSize uint64

	// DTBPhys is the physical pointer handed to _start in X0, reported by
	// LinkerLayout's caller (bootMain) rather than read from the linker
	// script, since it's a runtime value, not a link-time symbol. Zero
	// skips the identity mapping (the host test default).
	DTBPhys addr.PhysAddr
}

// tableBumpAllocator is the frame source walkToLeaf's table descent uses while
// building the boot tables: a tiny bump allocator over the reserved
// `.boot_table` region, since the real frame allocator (internal/pmm) isn't
// initialized until after the memory map is published post-paging.
type tableBumpAllocator struct {
	cursor addr.PhysAddr
	end    addr.PhysAddr
}

func (b *tableBumpAllocator) allocate() (addr.PhysAddr, error) {
	if b.cursor.Value()+arch.PageSize > b.end.Value() {
		return 0, newErr("bootbuild: .boot_table region exhausted")
	}
	frame := b.cursor
	b.cursor = addr.PhysAddr(b.cursor.Value() + arch.PageSize)
	if err := addr.Fill(vmm.PhysToVirt(frame), 0, arch.PageSize); err != nil {
		return 0, err
	}
	return frame, nil
}

// Result is everything BuildTables hands back to the caller that performs
// the EL2→EL1 switch and jump to boot_higher_half.
type Result struct {
	Root         vmm.PageTable
	UsableMemory []pmm.MemMapEntry
	FDT          *fdt.Tree
}

// BuildTables constructs the L0..L3 page tables per spec.md §4.D step 2:
// the bottom 4 GiB of physical address space aliased at the HHDM offset so
// every later package (internal/pmm, internal/vmm, internal/gic) can
// dereference a PhysAddr without a further mapping step; the kernel phys
// range mapped to its virtual range; boot code identity-mapped; the
// board's peripheral MMIO window identity-mapped device-nGnRE so
// kernel/uart and kernel/mbox's peripheral-relative constants are already
// valid the instant the MMU turns on; and the flattened device tree
// identity-mapped so kernel_main's FDT lookups keep dereferencing the same
// physical alias internal/fdt's zero-copy property slices were built
// against.
func BuildTables(tree *fdt.Tree, layout Layout) (Result, *bootError) {
	regions, err := usableRegions(tree)
	if err != nil {
		return Result{}, err
	}

	bump := &tableBumpAllocator{cursor: layout.BootTableStart, end: layout.BootTableEnd}
	allocFn := vmm.FrameAllocatorFn(bump.allocate)

	root, verr := vmm.Create(vmm.KindKernel, allocFn)
	if verr != nil {
		return Result{}, newErr(verr.Error())
	}

	// Kernel: phys range -> virt range as one read-write, executable
	// mapping (no text vs data split in this minimal boot stage; spec.md
	// §4.D names only the mapping, not per-section permissions).
	kernelSize := layout.KernelPhysEnd.Value() - layout.KernelPhysStart.Value()
	if kernelSize > 0 {
		if mapErr := root.MapRange(layout.KernelVirtStart, layout.KernelPhysStart, kernelSize,
			arch.FlagAttrIndex(arch.MairNormalWB), allocFn); mapErr != nil {
			return Result{}, newErr(mapErr.Error())
		}
	}

	// Boot code: identity map so the eret into boot_higher_half (still
	// executing at its physical address momentarily) stays valid the
	// instant the MMU turns on, per spec.md §4.D step 3's ordering note.
	bootSize := layout.BootEnd.Value() - layout.BootStart.Value()
	if bootSize > 0 {
		bootVirt := addr.NewVirtAddrCanonical(layout.BootStart.Value())
		if mapErr := root.MapRange(bootVirt, layout.BootStart, bootSize,
			arch.FlagAttrIndex(arch.MairNormalWB), allocFn); mapErr != nil {
			return Result{}, newErr(mapErr.Error())
		}
	}

	// HHDM: the entire bottom 4 GiB of physical address space aliased at
	// addr.HHDMOffset, per spec.md §4.D step 2 ("0 .. 4 GiB phys ->
	// HHDM+0 .. HHDM+4 GiB") and §3's "invariant for the life of the
	// kernel" — not just the FDT's reported /memory regions, since
	// internal/gic's distributor/CPU-interface windows and any reserved
	// range outside /memory need an HHDM alias too, and kernel.initGIC
	// dereferences gicdPhys.AsHHDMVirt()/giccPhys.AsHHDMVirt() regardless
	// of whether those physical addresses fall inside reported RAM.
	hhdmVirt := addr.NewVirtAddrCanonical(addr.HHDMOffset)
	if mapErr := root.MapRange(hhdmVirt, addr.PhysAddr(0), hhdmSpan,
		arch.FlagAttrIndex(arch.MairNormalWB)|arch.FlagNonExecutable, allocFn); mapErr != nil {
		return Result{}, newErr(mapErr.Error())
	}

	// Peripheral MMIO: identity map, device-nGnRE, non-executable, per
	// spec.md §4.D step 2 ("peripheral base 0xFE00_0000 .. +32 MiB ->
	// identity, device-nGnRE, non-executable"). kernel/uart and
	// kernel/mbox compute their register base as a physical address used
	// directly as a virtual one (no HHDM offset), so this is the mapping
	// that keeps uart.Init() from faulting on its first MMIO write.
	if layout.PeripheralSize > 0 {
		peripheralVirt := addr.NewVirtAddrCanonical(layout.PeripheralBase.Value())
		if mapErr := root.MapRange(peripheralVirt, layout.PeripheralBase, layout.PeripheralSize,
			arch.FlagAttrIndex(arch.MairDeviceNGnRE)|arch.FlagNonExecutable, allocFn); mapErr != nil {
			return Result{}, newErr(mapErr.Error())
		}
	}

	// Flattened device tree: identity map a fixed 32 MiB window at the
	// physical pointer handed to _start in X0, per spec.md §4.D step 2
	// ("flattened device tree at dtb_ptr .. +32 MiB -> identity, normal
	// memory"). internal/fdt's node properties are sub-slices of the
	// original blob (no copy), so every FDT lookup kernel_main performs
	// after the MMU is on — including initGIC's FindByCompatible/Reg,
	// called after this function returns — dereferences this same
	// physical alias.
	if layout.DTBPhys != 0 {
		dtbVirt := addr.NewVirtAddrCanonical(layout.DTBPhys.Value())
		if mapErr := root.MapRange(dtbVirt, layout.DTBPhys, dtbWindow,
			arch.FlagAttrIndex(arch.MairNormalWB)|arch.FlagNonExecutable, allocFn); mapErr != nil {
			return Result{}, newErr(mapErr.Error())
		}
	}

	usable := excise(regions, layout)
	return Result{Root: root, UsableMemory: usable, FDT: tree}, nil
}

// usableRegions reads the FDT's /memory node(s), per spec.md §4.D step 4.
func usableRegions(tree *fdt.Tree) ([]Region, *bootError) {
	var out []Region
	for _, child := range tree.Root.Children {
		if len(child.Name) < 6 || child.Name[:6] != "memory" {
			continue
		}
		regs, err := child.Reg()
		if err != nil {
			continue
		}
		for _, r := range regs {
			out = append(out, Region{Base: addr.NewPhysAddrCanonical(r.Address), Size: r.Size})
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMemoryNode
	}
	return out, nil
}

// excise removes the kernel and boot-image ranges from the reported usable
// regions, splitting a region into up to two pieces when the excised range
// falls strictly inside it — spec.md §8 scenario S3's exact contract.
func excise(regions []Region, layout Layout) []pmm.MemMapEntry {
	cuts := []Region{
		{Base: layout.KernelPhysStart, Size: layout.KernelPhysEnd.Value() - layout.KernelPhysStart.Value()},
		{Base: layout.BootStart, Size: layout.BootEnd.Value() - layout.BootStart.Value()},
	}
	work := regions
	for _, cut := range cuts {
		if cut.Size == 0 {
			continue
		}
		work = excise1(work, cut)
	}
	out := make([]pmm.MemMapEntry, 0, len(work))
	for _, r := range work {
		out = append(out, pmm.MemMapEntry{
			Base: r.Base,
			Size: addr.FrameCount(r.Size / arch.PageSize),
			Kind: pmm.KindUsable,
		})
	}
	return out
}

func excise1(regions []Region, cut Region) []Region {
	var out []Region
	cutStart, cutEnd := cut.Base.Value(), cut.Base.Value()+cut.Size
	for _, r := range regions {
		rStart, rEnd := r.Base.Value(), r.Base.Value()+r.Size
		if cutEnd <= rStart || cutStart >= rEnd {
			out = append(out, r)
			continue
		}
		if cutStart > rStart {
			out = append(out, Region{Base: r.Base, Size: cutStart - rStart})
		}
		if cutEnd < rEnd {
			out = append(out, Region{Base: addr.NewPhysAddrCanonical(cutEnd), Size: rEnd - cutEnd})
		}
	}
	return out
}
