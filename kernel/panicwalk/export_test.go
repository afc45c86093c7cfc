package panicwalk

import (
	"talon/internal/addr"
	"talon/internal/vmm"
)

// installFakes swaps every indirection Walk uses for recording fakes:
// translateFn always reports v as mapped (the fp addresses host tests
// build are real Go memory, not a real page-table walk's concern),
// putsFn/printfFn append to logs instead of writing a real UART, and
// haltFn counts calls instead of spinning forever. Returns a restore
// closure, the save/defer-restore shape every other package in this
// module uses for its Fn vars.
func installFakes() (puts *[]string, tags *[]string, halts *int, restore func()) {
	prevPuts, prevPrintf, prevTranslate, prevHalt := putsFn, printfFn, translateFn, haltFn

	putsLog := []string{}
	tagLog := []string{}
	haltCount := 0

	putsFn = func(s string) { putsLog = append(putsLog, s) }
	printfFn = func(tag string, v uint64) { tagLog = append(tagLog, tag) }
	translateFn = func(root vmm.PageTable, v addr.VirtAddr) (vmm.PageTableEntry, error) {
		return vmm.Unused, nil
	}
	haltFn = func() { haltCount++ }

	return &putsLog, &tagLog, &haltCount, func() {
		putsFn, printfFn, translateFn, haltFn = prevPuts, prevPrintf, prevTranslate, prevHalt
	}
}
