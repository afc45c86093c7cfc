package gic

// MaxIRQs is the architectural ceiling on GICv2 interrupt IDs; the
// descriptor table is sized to it regardless of how many lines the
// distributor actually advertises.
const MaxIRQs = 1024

// spuriousBase marks the reserved ID range GICC_IAR reports when no
// interrupt is actually pending (1020..1023); a spurious ack must not be
// dispatched or EOI'd.
const spuriousBase = 1020

// Handler is the driver-level callback a descriptor slot holds, invoked
// with the hardware IRQ number after ack and before eoi.
type Handler func(hwirq uint32)

// descriptor is one slot of the per-IRQ table: the registered handler,
// whether the slot is claimed, and the chip-level IRQ number it
// corresponds to.
type descriptor struct {
	handler Handler
	inUse   bool
	chipIRQ uint32
}

// DescriptorTable pairs a chip with its fixed per-IRQ handler slots,
// indexed by hardware IRQ number. Callers serialize access externally
// (the kernel glue wraps it in an IRQ-masking mutex held briefly around
// register/ack/eoi).
type DescriptorTable struct {
	chip  *Chip
	slots [MaxIRQs]descriptor
}

// NewDescriptorTable binds an empty table to an initialized chip.
func NewDescriptorTable(chip *Chip) *DescriptorTable {
	return &DescriptorTable{chip: chip}
}

// Chip exposes the underlying chip for ack/eoi sequencing.
func (d *DescriptorTable) Chip() *Chip { return d.chip }

// Register claims the slot for hwirq, installs its handler, and enables
// the line at the chip. It fails when the number is out of range or the
// slot is already claimed.
func (d *DescriptorTable) Register(hwirq uint32, trigger TriggerKind, h Handler) bool {
	if hwirq >= MaxIRQs || d.slots[hwirq].inUse {
		return false
	}
	d.slots[hwirq] = descriptor{handler: h, inUse: true, chipIRQ: hwirq}
	d.chip.Enable(hwirq, trigger)
	return true
}

// Unregister disables the line and releases its slot.
func (d *DescriptorTable) Unregister(hwirq uint32) {
	if hwirq >= MaxIRQs || !d.slots[hwirq].inUse {
		return
	}
	d.chip.Disable(hwirq)
	d.slots[hwirq] = descriptor{}
}

// HandlerFor returns the handler registered for hwirq, or nil. A spurious
// ack value (1020..1023) always returns nil.
func (d *DescriptorTable) HandlerFor(hwirq uint32) Handler {
	if hwirq >= spuriousBase || hwirq >= MaxIRQs || !d.slots[hwirq].inUse {
		return nil
	}
	return d.slots[hwirq].handler
}

// IsSpurious reports whether an ack value falls in the reserved
// no-interrupt range.
func IsSpurious(iar uint32) bool { return iar >= spuriousBase }
