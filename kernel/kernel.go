// Command kernel is component M, the glue package: kernel_main, driver
// bring-up, and the wiring between packages that the rest of the core
// deliberately keeps decoupled (sched's AddrSpaceRef interface, bootbuild's
// KernelMainFn hook, trap's Set*Handler hooks).
//
// Grounded on iansmith-mazarin's kernel.go KernelMain (the pageInit ->
// gicInit -> timerInit -> gpuInit ordering and its uartPuts boot banner),
// generalized onto this core's package boundaries instead of the teacher's
// single flat file.
package main

import (
	"talon/internal/addr"
	"talon/internal/addrspace"
	"talon/internal/arch"
	"talon/internal/bootbuild"
	"talon/internal/fdt"
	"talon/internal/gic"
	"talon/internal/irqmutex"
	"talon/internal/kheap"
	"talon/internal/pmm"
	"talon/internal/sched"
	"talon/internal/timer"
	"talon/internal/trap"
	"talon/internal/vmm"
	"talon/kernel/panicwalk"
	"talon/kernel/uart"
)

// frameAlloc and chipGuard are process-wide singletons per
// spec.md §9 ("Global mutable state... write-once initialization... then
// interior-mutated through their locks"): the IRQ chip descriptor table
// and the frame allocator both live behind an IrqMutex, the way spec.md §5
// names ("Frame allocator -> IrqMutex<BumpFrameAllocator>... IRQ chip
// descriptor table -> IrqMutex<IrqChipDescriptor>").
var (
	frameAlloc *irqmutex.Mutex[*pmm.BumpFrameAllocator]
	chipGuard  *irqmutex.Mutex[*gic.DescriptorTable]

	// kernelRoot is the boot builder's finished L0 table, kept here so
	// panicwalk can translate() frame pointers during an unwind.
	kernelRoot vmm.PageTable
)

func init() {
	// bootbuild calls this once, from EL1 with the MMU already on, per
	// spec.md §4.D step 4 ("...publish BOOT_INFO exactly once, and call
	// kernel_main").
	bootbuild.KernelMainFn = kernelMain
}

// main exists only to satisfy `go build`'s package-main requirement for a
// freestanding image built with -buildmode=c-archive (iansmith-mazarin's
// runtime_stub.go/stack_growth.go commentary); _start (start_arm64.s) is
// the real entry point and never calls it.
func main() {}

// kernelMain is the Go-side continuation of spec.md's boot control flow:
// "parses FDT, builds usable-memory list -> kernel_main -> init mem / heap
// / IRQ chip / timer / drivers -> enables interrupts -> context 0 becomes
// runnable -> timer IRQ drives switch()".
func kernelMain(boot bootbuild.Result) {
	uart.Init()
	uart.Puts("talon: boot\n")

	kernelRoot = boot.Root
	addrspace.AdoptCurrentKernel(boot.Root.Frame)

	bump := pmm.NewBumpFrameAllocator(boot.UsableMemory)
	frameAlloc = irqmutex.New(bump)

	trap.SetSyncHandler(handleSync)
	trap.SetIRQFrameHandler(handleIRQ)
	trap.SetUnhandledHandler(handleUnhandled)

	initHeap(boot.Root)
	initGIC(boot.FDT)
	timer.Init()
	timer.SetTickHandler(func() { sched.Switch() })

	sched.SetAddrSpaceSwapper(swapAddrSpace)
	sched.SetIdle(idleContext())
	sched.Register(sched.Current())

	uart.Puts("talon: init complete\n")
	enableInterrupts()

	for {
		wfiFn()
	}
}

// allocFrame is the vmm.FrameAllocatorFn every post-boot page-table
// mutation uses: the guarded bump allocator, one page at a time.
func allocFrame() (addr.PhysAddr, error) {
	g := frameAlloc.Lock()
	defer g.Unlock()
	frame, err := (*g.Payload()).AllocateOne()
	if err != nil {
		return 0, err
	}
	return frame, nil
}

// initHeap maps KERNEL_HEAP_START..+64 MiB RW/NX with freshly allocated
// frames and hands the range to kheap, per spec.md §4.K
// ("kernel_main_post_paging").
const kernelHeapStart = 0xffff_9000_0000_0000

func initHeap(root vmm.PageTable) {
	start := addr.NewVirtAddrCanonical(kernelHeapStart)
	flags := arch.FlagAttrIndex(arch.MairNormalWB) | arch.FlagNonExecutable
	for off := uint64(0); off < kheap.HeapSize; off += arch.PageSize {
		frame, err := allocFrame()
		if err != nil {
			panic("kernel: out of memory mapping the kernel heap")
		}
		flush, mErr := root.MapTo(start.AddBytes(off), frame, vmm.Block4KiB, flags, allocFrame)
		if mErr != nil {
			panic("kernel: " + mErr.Error())
		}
		flush.Flush()
	}
	kheap.Init(start, kheap.HeapSize)
}

// initGIC finds the "arm,gic-400" node, maps its distributor and
// CPU-interface MMIO windows, and brings the chip up, per spec.md §4.F and
// §6 ("Required compatibles: arm,gic-400").
func initGIC(tree *fdt.Tree) {
	node, err := tree.FindByCompatible("arm,gic-400")
	if err != nil {
		uart.Puts("talon: no GIC in FDT, IRQs disabled\n")
		return
	}
	regs, rerr := node.Reg()
	if rerr != nil || len(regs) < 2 {
		panic("kernel: gic-400 node missing reg property")
	}
	gicdPhys, derr := tree.TranslateMMIO(node, regs[0])
	if derr != nil {
		panic("kernel: " + derr.Error())
	}
	giccPhys, cerr := tree.TranslateMMIO(node, regs[1])
	if cerr != nil {
		panic("kernel: " + cerr.Error())
	}

	chip := gic.New(gicdPhys.AsHHDMVirt(), giccPhys.AsHHDMVirt())
	chip.Init()
	table := gic.NewDescriptorTable(chip)
	chipGuard = irqmutex.New(table)

	// PPI 14, hwirq 30: the architected non-secure EL1 physical timer on
	// both BCM2711 and QEMU virt. A real board walks the generic timer's
	// own FDT node for this; both of this core's target platforms fix it
	// at the same hwirq, so it is named directly rather than re-deriving
	// it from a node neither platform varies.
	const gicTimerIRQ = 30
	table.Register(gicTimerIRQ, gic.TriggerLevel, func(uint32) { timer.HandleIRQ() })
}

// handleSync classifies a synchronous exception per spec.md §4.E: a data
// abort (EC 0x24 or 0x25) is decoded via DFSC into a fault kind and is
// unrecoverable; an AArch64 SVC is logged and ignored; anything else
// panics naming the vector slot it came from.
func handleSync(kind trap.Kind, reason trap.Reason, frame *trap.InterruptFrame) {
	ec := frame.EC()
	if trap.IsDataAbort(ec) {
		fk := trap.ClassifyDFSC(frame.DFSC())
		uart.Printf("fault", uint64(frame.ESR))
		uart.Printf("far", uint64(trap.FAR()))
		panicwalk.Walk(kernelRoot, "translation fault: "+fk.String(), frame, addr.NewVirtAddrCanonical(frame.FP))
		return
	}
	if trap.IsSyscall(ec) {
		// Out of core scope per spec.md §1; logged and ignored rather
		// than panicking, since a lower-EL SVC implies user-space
		// execution this core never spawns.
		uart.Printf("syscall (ignored)", uint64(frame.ESR))
		return
	}
	panicwalk.Walk(kernelRoot, "unhandled sync exception: "+kind.String()+"/"+reasonName(reason), frame, addr.NewVirtAddrCanonical(frame.FP))
}

func reasonName(r trap.Reason) string {
	switch r {
	case trap.ReasonCurrentSPEL0:
		return "curr_el_sp0"
	case trap.ReasonCurrentSPELx:
		return "curr_el_spx"
	case trap.ReasonLowerAArch64:
		return "lower_aarch64"
	default:
		return "lower_aarch32"
	}
}

// handleUnhandled backs FIQ and SError vector slots: spec.md §7 treats
// these as unrecoverable ("Synchronous exceptions in unexpected EL/SP
// combinations panic with a tag naming which vector slot they came from").
func handleUnhandled(kind trap.Kind, reason trap.Reason, frame *trap.InterruptFrame) {
	panicwalk.Walk(kernelRoot, "unhandled vector: "+kind.String()+"/"+reasonName(reason), frame, addr.NewVirtAddrCanonical(frame.FP))
}

// handleIRQ is the single IRQ vector's Go-side dispatch: ack, route
// through the descriptor table by hardware IRQ number, EOI, per spec.md
// §4.E ("IRQ slots dispatch into handle_irq(): ack -> dispatch by IRQ
// number -> EOI"). The descriptor-table lock is held only around ack, the
// slot lookup, and eoi — never across the handler itself, since the timer
// handler re-enters the scheduler.
func handleIRQ(_ *trap.InterruptFrame) {
	if chipGuard == nil {
		return
	}
	g := chipGuard.Lock()
	table := *g.Payload()
	iar := table.Chip().Ack()
	h := table.HandlerFor(iar)
	g.Unlock()

	if gic.IsSpurious(iar) {
		return
	}
	if h != nil {
		h(iar)
	} else {
		uart.Printf("unhandled irq", uint64(iar))
	}

	g2 := chipGuard.Lock()
	(*g2.Payload()).Chip().EOI(iar)
	g2.Unlock()
}

// swapAddrSpace is sched's post-switch hook: load next's table root into
// TTBR0 (user) or TTBR1 (kernel) and invalidate the whole TLB, per spec.md
// §4.I switch_finish_hook.
func swapAddrSpace(next sched.AddrSpaceRef) {
	if next == nil {
		return
	}
	loadTTBRFn(next.TableRoot(), next.IsUser())
	invalidateAllTLBFn()
}

// idleContext builds the pinned idle context context 0 parks as once the
// real scheduler exists, per spec.md §3 ("the idle context is pinned").
func idleContext() *sched.Context {
	c := &sched.Context{PID: 0, Status: sched.StatusRunnable}
	sched.SetCurrent(c)
	return c
}

// enableInterrupts unmasks all four PSTATE.DAIF bits (debug, SError, IRQ,
// FIQ), the last boot step before
// context 0 becomes runnable (spec.md "Control flow at boot").
func enableInterrupts() { enableInterruptsFn() }
