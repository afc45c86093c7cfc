package gic

import "talon/internal/addr"

// mmioReadFn/mmioWriteFn indirect every register access through
// internal/addr's volatile accessors, following the rest of the module's
// Fn-indirection test idiom: host tests replace these with an in-memory
// register file instead of touching real MMIO.
var (
	mmioReadFn  = mmioRead
	mmioWriteFn = mmioWrite
)

func mmioRead(v addr.VirtAddr) uint32 {
	val, err := addr.ReadVolatile[uint32](v)
	if err != nil {
		panic("gic: " + err.Error())
	}
	return val
}

func mmioWrite(v addr.VirtAddr, val uint32) {
	if err := addr.WriteVolatile[uint32](v, val); err != nil {
		panic("gic: " + err.Error())
	}
}
