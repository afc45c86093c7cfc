package vmm

import (
	"unsafe"

	"talon/internal/addr"
	"talon/internal/arch"
)

// PageTable names one level of the four-level hierarchy: the physical frame
// backing its 512-entry array, which level it occupies (4 = root .. 1 =
// leaf), and whether it is reachable from user space.
type PageTable struct {
	Frame addr.PhysAddr
	Level int
	Kind  Kind
}

// entries returns the live 512-entry array for this table, accessed through
// the current frame projection (normally the HHDM alias) — the core never
// maps page-table frames anywhere else, following gopheros's
// recursive-mapping approach generalized to talon's direct-map approach
// (simpler: no recursive slot needed once a flat HHDM exists for all
// physical memory).
func (t PageTable) entries() *[arch.EntriesPerTable]PageTableEntry {
	v := physToVirtFn(t.Frame)
	return (*[arch.EntriesPerTable]PageTableEntry)(unsafe.Pointer(uintptr(v)))
}

// Create allocates and zeroes a fresh root table of the given kind.
func Create(kind Kind, alloc FrameAllocatorFn) (PageTable, *vmmError) {
	frame, err := alloc()
	if err != nil {
		return PageTable{}, newErr(err.Error())
	}
	t := PageTable{Frame: frame, Level: arch.LevelRoot, Kind: kind}
	for i := range t.entries() {
		t.entries()[i] = Unused
	}
	return t, nil
}

// NextTable descends to the table at index, failing with ErrNoNextTable if
// the slot is empty or is a terminal block/page rather than a table
// (spec.md §4.C: "descending into a non-table entry returns NoNextTable").
func (t PageTable) NextTable(index uint64) (PageTable, *vmmError) {
	if index >= arch.EntriesPerTable {
		return PageTable{}, ErrInvalidPageTableIdx
	}
	e := t.entries()[index]
	if !e.IsTable() {
		return PageTable{}, ErrNoNextTable
	}
	frame, ferr := e.Addr()
	if ferr != nil {
		return PageTable{}, ferr
	}
	return PageTable{Frame: frame, Level: t.Level - 1, Kind: t.Kind}, nil
}

// NextTableCreate is the only place that allocates page-table frames: if
// the slot is empty it allocates and zeroes a new table and installs
// PageTableDefaults|insertFlags; if the slot already names a table it OR's
// insertFlags into the existing entry instead of replacing it.
func (t PageTable) NextTableCreate(index uint64, insertFlags uint64, alloc FrameAllocatorFn) (PageTable, *vmmError) {
	if index >= arch.EntriesPerTable {
		return PageTable{}, ErrInvalidPageTableIdx
	}
	entries := t.entries()
	e := entries[index]

	if e == Unused {
		frame, err := alloc()
		if err != nil {
			return PageTable{}, newErr(err.Error())
		}
		next := PageTable{Frame: frame, Level: t.Level - 1, Kind: t.Kind}
		for i := range next.entries() {
			next.entries()[i] = Unused
		}
		var newEntry PageTableEntry
		newEntry.SetEntry(frame, arch.PageTableDefaults|insertFlags)
		entries[index] = newEntry
		return next, nil
	}

	if !e.IsTable() {
		return PageTable{}, ErrNoNextTable
	}
	entries[index] = PageTableEntry(uint64(e) | (arch.PageTableDefaults | insertFlags))
	frame, ferr := entries[index].Addr()
	if ferr != nil {
		return PageTable{}, ferr
	}
	return PageTable{Frame: frame, Level: t.Level - 1, Kind: t.Kind}, nil
}
