package mbox

// fakeMailbox backs mmioReadFn/mmioWriteFn for host tests: it accepts
// whatever request address is written and, once the request is parsed,
// writes a canned property-tag response back into the caller's buffer via
// respond — there being no real VideoCore firmware to answer it off target.
type fakeMailbox struct {
	status  uint32
	written uint32
	respond func(reqAddr uint32)
}

func newFakeMailbox(respond func(reqAddr uint32)) *fakeMailbox {
	return &fakeMailbox{status: statusEmpty, respond: respond}
}

func (f *fakeMailbox) install() func() {
	Base = 0x1000 // any non-null sentinel; install() replaces the Fns below it
	prevRead, prevWrite := mmioReadFn, mmioWriteFn
	mmioReadFn = func(off uint32) uint32 {
		switch off {
		case offStatus:
			return f.status
		case offRead:
			f.status = statusEmpty
			return f.written
		}
		return 0
	}
	mmioWriteFn = func(off uint32, v uint32) {
		if off != offWrite {
			return
		}
		reqAddr := v &^ 0xf
		if f.respond != nil {
			f.respond(reqAddr)
		}
		f.written = v
		f.status = 0
	}
	return func() {
		mmioReadFn, mmioWriteFn = prevRead, prevWrite
		Base = 0
	}
}
