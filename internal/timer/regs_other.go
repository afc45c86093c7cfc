//go:build !arm64

package timer

// Host-test fallbacks; every test that cares about timer values replaces
// readCNTFRQFn/readCNTPCTFn/writeTVALFn/writeCTLFn directly.

func readCNTFRQ() uint64 { return 0 }
func writeTVAL(uint64)   {}
func writeCTL(uint64)    {}
func readCNTPCT() uint64 { return 0 }
