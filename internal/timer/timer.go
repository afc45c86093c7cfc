// Package timer drives the ARM generic physical timer (CNTP_*): frequency
// discovery, the 10 ms reload tick, and uptime reporting.
//
// Grounded on iansmith-mazarin's timer_qemu.go (the CNTFRQ_EL0/CNTP_*
// linkname accessors and its 10ms-tick framing), generalized to the
// tick-driven scheduler hook and Duration-style uptime spec.md §4.G
// names.
package timer

import "time"

const ticksPerSecondDivisor = 100 // 10 ms tick

// readCNTFRQFn / writeTVALFn / writeCTLFn / readCNTPCTFn are the arch
// hooks, indirected for host testing the way the rest of the module is.
var (
	readCNTFRQFn  = readCNTFRQ
	writeTVALFn   = writeTVAL
	writeCTLFn    = writeCTL
	readCNTPCTFn  = readCNTPCT
)

// tickHandlerFn is called from the timer IRQ handler after mask/reload;
// normally bound to the scheduler's switch().
var tickHandlerFn func()

// SetTickHandler installs the function called on every timer tick.
func SetTickHandler(h func()) { tickHandlerFn = h }

// state holds the frequency and reload count computed once at Init.
var (
	freqHz      uint64
	reloadCount uint64
)

// Init reads CNTFRQ_EL0, computes the 10 ms reload count, and arms the
// first tick (spec.md §4.G).
func Init() {
	freqHz = readCNTFRQFn()
	reloadCount = freqHz / ticksPerSecondDivisor
	arm()
}

func arm() {
	writeTVALFn(reloadCount)
	writeCTLFn(1) // ENABLE=1, IMASK=0
}

// HandleIRQ is called from the timer's IRQ vector entry: mask (handled by
// the caller's IRQ-mutex discipline), invoke the tick handler, then
// re-arm. Per spec.md §4.G: "On IRQ: mask, call switch(), unmask and
// reload."
func HandleIRQ() {
	if tickHandlerFn != nil {
		tickHandlerFn()
	}
	arm()
}

// Uptime converts the free-running physical counter into a duration,
// using the frequency discovered at Init (spec.md §4.G / §8 scenario S5).
func Uptime() time.Duration {
	ticks := readCNTPCTFn()
	if freqHz == 0 {
		return 0
	}
	secs := ticks / freqHz
	remainder := ticks % freqHz
	nanos := remainder * uint64(time.Second) / freqHz
	return time.Duration(secs)*time.Second + time.Duration(nanos)
}

// FrequencyHz exposes the discovered CNTFRQ_EL0 value.
func FrequencyHz() uint64 { return freqHz }

// ReloadCount exposes the computed 10ms reload count.
func ReloadCount() uint64 { return reloadCount }
