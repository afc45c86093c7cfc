//go:build arm64

package trap

import _ "unsafe" // for go:linkname

// trapSyncEntry is called by the shared sync trampoline in
// vectors_arm64.s with the vector slot's reason index and a pointer
// to the just-saved frame. Exported via go:linkname so the hand-written
// assembly can reference it by a stable symbol name without importing the
// Go calling convention machinery.
//
//go:linkname trapSyncEntry trapSyncEntry
//go:nosplit
func trapSyncEntry(reason uint64, frame *InterruptFrame) {
	dispatchSyncFn(Reason(reason), frame)
}

// trapIRQEntry is called by the shared IRQ trampoline; dispatch by IRQ
// number happens inside irqFrameHandlerFn, which wraps the GIC ack/eoi
// sequence (wired by the kernel glue code, not by this package).
//
//go:linkname trapIRQEntry trapIRQEntry
//go:nosplit
func trapIRQEntry(frame *InterruptFrame) {
	if irqFrameHandlerFn != nil {
		irqFrameHandlerFn(frame)
	}
}

//go:linkname trapUnhandledEntry trapUnhandledEntry
//go:nosplit
func trapUnhandledEntry(kind, reason uint64, frame *InterruptFrame) {
	if unhandledFn != nil {
		unhandledFn(Kind(kind), Reason(reason), frame)
	}
}
