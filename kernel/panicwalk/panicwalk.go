// Package panicwalk implements the panic-time frame-pointer unwinder:
// spec.md §7 describes its behavior in detail ("walks frame pointers
// through addresses known to be mapped ... using translate before
// dereferencing ... prints the chain ... halts in a WFE loop") even
// though §1 lists the unwinder among the external collaborators this
// core otherwise treats as out of scope. We implement exactly the
// contract §7 states, because it is expressed entirely in terms of
// internal/vmm's own Translate, not some external tool's format.
//
// Grounded on iansmith-mazarin's exceptions.go panic path (the
// "uartPuts the fault, dump registers, spin" shape) for the logging
// texture, and on internal/trap's InterruptFrame for the register
// layout a panic has to report from.
package panicwalk

import (
	"talon/internal/addr"
	"talon/internal/trap"
	"talon/internal/vmm"
	"talon/kernel/uart"
)

// maxFrames bounds the walk the way the teacher's own loops are always
// bounded rather than trusting a possibly-corrupt chain to terminate.
const maxFrames = 64

// putsFn/printfFn indirect every line of output so host tests can capture
// the walk without a real UART, the same Fn idiom the rest of the module
// uses for its host tests.
var putsFn = uart.Puts
var printfFn = uart.Printf

// translateFn indirects the mapped-address check so host tests can
// supply a fake table instead of a live TTBR1 root.
var translateFn = func(root vmm.PageTable, v addr.VirtAddr) (vmm.PageTableEntry, error) {
	e, err := root.Translate(v)
	if err != nil {
		return vmm.Unused, err
	}
	return e, nil
}

// haltFn is the terminal action after a walk; real builds spin in WFE
// forever, tests observe a call count instead of hanging.
var haltFn = func() {
	for {
		wfe()
	}
}

// Walk prints the panic tag, the frame captured at the fault (if any),
// then walks the x29 (frame pointer) chain starting at fp: each step
// reads the saved [previous-fp, return-address] pair at *fp, verifying
// fp is mapped via root.Translate before the dereference, and stops at
// an unmapped or null fp or after maxFrames links. It never returns —
// the last line of the contract is "halts in a WFE loop".
func Walk(root vmm.PageTable, tag string, frame *trap.InterruptFrame, fp addr.VirtAddr) {
	putsFn("panic: ")
	putsFn(tag)
	putsFn("\r\n")

	if frame != nil {
		printfFn("elr", frame.ELR)
		printfFn("esr", frame.ESR)
		printfFn("spsr", frame.SPSR)
		printfFn("far", uint64(trap.FAR()))
	}

	putsFn("backtrace:\r\n")
	for i := 0; i < maxFrames; i++ {
		if fp.IsNull() {
			break
		}
		if _, err := translateFn(root, fp); err != nil {
			printfFn("  <unmapped fp>", uint64(fp))
			break
		}
		prevFP, errA := addr.Read[uint64](fp)
		lr, errB := addr.Read[uint64](fp.AddBytes(8))
		if errA != nil || errB != nil {
			printfFn("  <unreadable frame>", uint64(fp))
			break
		}
		printfFn("  pc", lr)
		fp = addr.NewVirtAddrCanonical(prevFP)
	}

	haltFn()
}
