// Package trap implements the AArch64 exception vector table contract:
// the InterruptFrame layout shared with the assembly save/restore stubs,
// ESR_EL1 classification, and the per-reason dispatch table consulted by
// the vector stubs.
//
// Grounded on iansmith-mazarin's exceptions.go (the EC constant vocabulary
// and the linkname'd VBAR_EL1/ESR_EL1/FAR_EL1 accessors), generalized to
// the 16-slot vector layout and DFSC fault-kind classification spec.md
// §4.E describes.
package trap

import "talon/internal/addr"

// Kind names which of the 4 exception categories a vector slot belongs to,
// matching the AArch64 vector table's row axis.
type Kind int

const (
	KindSync Kind = iota
	KindIRQ
	KindFIQ
	KindSError
)

func (k Kind) String() string {
	switch k {
	case KindSync:
		return "sync"
	case KindIRQ:
		return "irq"
	case KindFIQ:
		return "fiq"
	case KindSError:
		return "serror"
	default:
		return "unknown"
	}
}

// Reason names which of the 4 origin columns a vector slot belongs to.
type Reason int

const (
	ReasonCurrentSPEL0 Reason = iota
	ReasonCurrentSPELx
	ReasonLowerAArch64
	ReasonLowerAArch32
)

// Exception class values from ESR_EL1[31:26], the subset spec.md §4.E
// names plus the codes needed to tell them apart from the rest.
const (
	ecDataAbortLowerEL = 0b100100
	ecDataAbortSameEL  = 0b100101
	ecSVC64            = 0b010101
)

// InterruptFrame mirrors exactly what the vector stub pushes: callee-saved
// GPRs (x19..x30), caller-scratch GPRs (x0..x18 plus padding for 16-byte
// stack alignment), then the four system registers captured at entry.
// Field order must match vectors_arm64.s; changing one without the
// other corrupts every save/restore.
type InterruptFrame struct {
	X19, X20, X21, X22, X23, X24, X25, X26, X27, X28 uint64
	FP, LR                                           uint64 // x29, x30

	X0, X1, X2, X3, X4, X5, X6, X7   uint64
	X8, X9, X10, X11, X12, X13, X14, X15 uint64
	X16, X17, X18, Pad               uint64

	SPSR uint64
	ELR  uint64
	SPEL0 uint64
	ESR  uint64
}

// EC returns the exception class field, ESR_EL1 bits 31:26.
func (f *InterruptFrame) EC() uint32 { return uint32(f.ESR>>26) & 0x3f }

// ISS returns the instruction-specific syndrome, ESR_EL1 bits 24:0.
func (f *InterruptFrame) ISS() uint32 { return uint32(f.ESR) & 0x1ff_ffff }

// DFSC returns the data fault status code, ISS bits 5:0, meaningful only
// when EC is a data-abort class.
func (f *InterruptFrame) DFSC() uint32 { return f.ISS() & 0x3f }

// FaultKind classifies a translation fault's DFSC per spec.md §4.E.
type FaultKind int

const (
	FaultUnhandled FaultKind = iota
	FaultPageNotPresent
	FaultAccessFlag
	FaultPermission
)

func (k FaultKind) String() string {
	switch k {
	case FaultPageNotPresent:
		return "page not present"
	case FaultAccessFlag:
		return "access-flag fault"
	case FaultPermission:
		return "permission fault"
	default:
		return "unhandled"
	}
}

// ClassifyDFSC maps a DFSC value to a FaultKind using the three ranges
// spec.md §4.E names; everything else is FaultUnhandled, per the source's
// documented behavior of logging "unhandled" and panicking (Design Notes
// §9 open question: no further mapping is specified).
func ClassifyDFSC(dfsc uint32) FaultKind {
	switch {
	case dfsc >= 0b00_0000 && dfsc <= 0b00_0011:
		return FaultPageNotPresent
	case dfsc >= 0b00_1001 && dfsc <= 0b00_1011:
		return FaultAccessFlag
	case dfsc >= 0b00_1101 && dfsc <= 0b00_1111:
		return FaultPermission
	default:
		return FaultUnhandled
	}
}

// IsDataAbort reports whether EC names a data abort from either the
// current or a lower exception level.
func IsDataAbort(ec uint32) bool {
	return ec == ecDataAbortLowerEL || ec == ecDataAbortSameEL
}

// IsSyscall reports whether EC names an AArch64 SVC from a lower EL —
// out of core scope per spec.md §4.E, but still classified so the
// handler can log it distinctly from a genuine fault.
func IsSyscall(ec uint32) bool { return ec == ecSVC64 }

// Handler is the Go-side entry point a vector stub calls with a pointer
// to the saved frame and which slot it came from.
type Handler func(kind Kind, reason Reason, frame *InterruptFrame)

// IRQHandler receives an already-acknowledged hardware IRQ number from
// dispatchIRQ; the IRQ vector slots do not call it directly.
type IRQHandler func(hwirq uint32)

var (
	syncHandlerFn Handler
	irqHandlerFn  IRQHandler
	farFn         func() addr.VirtAddr
)

// SetSyncHandler installs the synchronous-exception handler called from
// every KindSync vector slot.
func SetSyncHandler(h Handler) { syncHandlerFn = h }

// SetIRQHandler installs the handler dispatchIRQ calls with an
// already-acknowledged hwirq; it performs no ack or eoi itself.
func SetIRQHandler(h IRQHandler) { irqHandlerFn = h }

// dispatchSync is called from the vector stub's Go shim for every
// KindSync slot; it is a package-level Fn var (dispatchSyncFn below) so
// tests can observe dispatch without a real exception.
func dispatchSync(reason Reason, frame *InterruptFrame) {
	if syncHandlerFn != nil {
		syncHandlerFn(KindSync, reason, frame)
	}
}

// dispatchIRQ hands an already-acknowledged hwirq to the installed
// IRQHandler. The IRQ slots' Go shim (trapIRQEntry) calls
// irqFrameHandlerFn, not this.
func dispatchIRQ(hwirq uint32) {
	if irqHandlerFn != nil {
		irqHandlerFn(hwirq)
	}
}

var (
	dispatchSyncFn = dispatchSync
	dispatchIRQFn  = dispatchIRQ
)

// irqFrameHandlerFn is distinct from dispatchIRQFn (which takes an
// already-acked hwirq number): the frame-level hook owns the ack/dispatch
// /eoi sequence and is free to call dispatchIRQFn once it knows the
// number.
var irqFrameHandlerFn func(frame *InterruptFrame)

// SetIRQFrameHandler installs the full ack/dispatch/eoi entry point run
// from the IRQ vector slots.
func SetIRQFrameHandler(h func(frame *InterruptFrame)) { irqFrameHandlerFn = h }

// unhandledFn handles FIQ and SError slots, an unrecoverable condition:
// the installed handler panics with a tag naming which vector slot the
// exception came from.
var unhandledFn func(kind Kind, reason Reason, frame *InterruptFrame)

// SetUnhandledHandler installs the FIQ/SError fallback, normally a panic.
func SetUnhandledHandler(h func(kind Kind, reason Reason, frame *InterruptFrame)) {
	unhandledFn = h
}

// FAR returns the fault address captured at the most recent data abort,
// valid only when called from within a sync exception handler.
func FAR() addr.VirtAddr {
	if farFn == nil {
		return 0
	}
	return farFn()
}
