package fdt

// IrqCellKind names how many raw 32-bit cells one interrupt specifier in an
// "interrupts" property occupies, which depends entirely on the declaring
// interrupt controller's own "#interrupt-cells" property.
type IrqCellKind int

const (
	IrqCellL1 IrqCellKind = iota + 1 // one cell: a bare IRQ number
	IrqCellL2                        // two cells: (number, flags)
	IrqCellL3                        // three cells: (kind, number, flags) — GICv2's shape
)

// IrqCell is one decoded interrupt specifier. Only the first Kind cells of
// Cells are meaningful; GICv2's 3-cell encoding maps Cells[0] to "kind" (SPI
// vs PPI), Cells[1] to the IRQ number within that class, Cells[2] to the
// trigger-type flags, per spec.md §4.F/§4.L.
type IrqCell struct {
	Kind  IrqCellKind
	Cells [3]uint32
}

// resolveInterruptParent walks n's ancestor chain for the nearest
// "interrupt-parent" property; the property is inheritable, matching the
// devicetree specification (a child with no explicit interrupt-parent uses
// the nearest ancestor's).
func (t *Tree) resolveInterruptParent(n *Node) (*Node, *Error) {
	for cur := n; cur != nil; cur = cur.Parent {
		if ph, ok := cur.InterruptParent(); ok {
			return t.ByPhandle(ph)
		}
	}
	return nil, ErrPropertyNotFound
}

// Interrupts decodes n's "interrupts" property into IrqCell entries, sized
// by the interrupt parent's "#interrupt-cells".
func (t *Tree) Interrupts(n *Node) ([]IrqCell, *Error) {
	v, ok := n.Properties["interrupts"]
	if !ok {
		return nil, ErrPropertyNotFound
	}
	parent, err := t.resolveInterruptParent(n)
	if err != nil {
		return nil, err
	}
	cellCount, ok := parent.InterruptCells()
	if !ok || cellCount == 0 || cellCount > 3 {
		return nil, ErrInvalidEncoding
	}
	stride := int(cellCount) * 4
	if len(v)%stride != 0 {
		return nil, ErrInvalidEncoding
	}
	kind := IrqCellKind(cellCount)
	var out []IrqCell
	for off := 0; off < len(v); off += stride {
		var c IrqCell
		c.Kind = kind
		for i := uint32(0); i < cellCount; i++ {
			c.Cells[i] = beU32(v[off+int(i)*4:])
		}
		out = append(out, c)
	}
	return out, nil
}
