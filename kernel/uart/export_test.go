package uart

// fakeRegs backs mmioReadFn/mmioWriteFn for host tests: no real PL011
// exists off-target, so every test swaps these in instead of touching
// Base at all.
type fakeRegs struct {
	regs map[uint32]uint32
	rx   []byte
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{regs: make(map[uint32]uint32)}
}

// pushRX queues bytes for a subsequent GetByte to return.
func (f *fakeRegs) pushRX(b ...byte) {
	f.rx = append(f.rx, b...)
	f.regs[offFR] &^= frRXFE
}

func (f *fakeRegs) install() func() {
	f.regs[offFR] = frRXFE // TX not full, RX empty by default
	prevRead, prevWrite := mmioReadFn, mmioWriteFn
	mmioReadFn = func(off uint32) uint32 {
		if off == offDR && len(f.rx) > 0 {
			b := f.rx[0]
			f.rx = f.rx[1:]
			if len(f.rx) == 0 {
				f.regs[offFR] |= frRXFE
			}
			return uint32(b)
		}
		return f.regs[off]
	}
	mmioWriteFn = func(off uint32, v uint32) {
		f.regs[off] = v
	}
	return func() { mmioReadFn, mmioWriteFn = prevRead, prevWrite }
}
