// Package arch names the single AArch64 binding the rest of the core
// dispatches through: page geometry, page-table-entry flag bits, and the
// memory-attribute indices programmed into MAIR_EL1 by the boot builder.
//
// talon targets exactly one architecture at build time, so this is a set of
// untyped constants rather than an interface or tagged union — the "compile
// time module alias" shape Design Notes §9 calls out as sufficient when no
// dynamic dispatch is required.
package arch

const (
	// PageShift is log2(4 KiB), the size of the smallest mappable unit.
	PageShift = 12
	PageSize  = 1 << PageShift

	// Block sizes available at levels above the leaf (AArch64 4 KiB granule).
	HugePage2MiB = 1 << 21
	HugePage1GiB = 1 << 30

	// EntriesPerTable is the fixed fan-out of every level: a table is one
	// 4 KiB page of 512 eight-byte descriptors.
	EntriesPerTable = 512

	// Levels numbers the walk from the root (4) down to the leaf (1), the
	// same numbering spec.md §3 uses for PageTable.level.
	LevelRoot = 4
	LevelLeaf = 1
)

// Page-table entry flag bits (AArch64 long-descriptor format, table D5-17 in
// the ARM ARM). Bits 0..11 and 52..63 carry flags; bits 12..51 carry the
// output address.
const (
	FlagPresent = 1 << 0 // valid bit
	// bit[1] is 0 for a block descriptor above the leaf level and 1 both
	// for a descriptor that points at a next-level table and for a 4 KiB
	// page descriptor at the leaf level.
	FlagNonBlock = 1 << 1 // entry is a table or a leaf page, not a block

	attrIdxShift = 2
	AttrIdxMask  = 0b111 << attrIdxShift

	FlagNonSecure = 1 << 5
	FlagUser      = 1 << 6  // AP[1]
	FlagReadOnly  = 1 << 7  // AP[2]
	FlagReadWrite = 0       // AP[2] clear
	FlagInnerShareable = 0b11 << 8
	FlagOuterShareable = 0b10 << 8
	FlagAccess         = 1 << 10 // AF
	FlagNonGlobal      = 1 << 11 // nG

	// Upper attributes, bits 52..63. PXN/UXN live at 53/54 in AArch64.
	FlagPXN = 1 << 53 // privileged execute-never
	FlagUXN = 1 << 54 // unprivileged execute-never

	// talon's vocabulary alias from spec.md §3: EXECUTABLE clears both XN
	// bits, NON_EXECUTABLE sets both (kernel mappings don't distinguish
	// EL0/EL1 execute permission the way a user mapping would).
	FlagExecutable    = 0
	FlagNonExecutable = FlagPXN | FlagUXN

	FlagGlobal = 0 // absence of FlagNonGlobal

	// There is no FlagHuge constant: a block descriptor is distinguished
	// from a table descriptor purely by FlagNonBlock being clear, and
	// internal/vmm's isHuge derives "huge" from that bit alone instead of
	// storing a redundant one.
)

// MAIR_EL1 attribute indices programmed by the boot builder (spec.md §4.D).
const (
	MairNormalWB  = 0 // Normal memory, Inner/Outer Write-Back, Read/Write-Allocate
	MairDeviceNGnRE = 1 // Device-nGnRE

	MairNormalWBEncoding    = 0xFF
	MairDeviceNGnREEncoding = 0x04

	MairEL1Value = uint64(MairNormalWBEncoding)<<(MairNormalWB*8) |
		uint64(MairDeviceNGnREEncoding)<<(MairDeviceNGnRE*8)
)

// PageTableDefaults is OR-ed into every freshly allocated table descriptor
// by next_table_create: present, a table (not a block), accessed, kernel
// read-write. Individual flags requested by the caller are OR-ed on top.
const PageTableDefaults = FlagPresent | FlagNonBlock | FlagAccess | FlagInnerShareable

// FlagAttrIndex encodes a MAIR_EL1 attribute index (MairNormalWB or
// MairDeviceNGnRE) into the AttrIndx[2:0] field of a page-table entry.
func FlagAttrIndex(idx uint64) uint64 {
	return (idx << attrIdxShift) & AttrIdxMask
}
