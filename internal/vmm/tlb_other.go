//go:build !arm64

package vmm

// Host-test fallbacks for non-arm64 builds (running `go test` on a
// development machine). Real tests never reach these bodies: every test
// that cares about TLB invalidation replaces invalidatePageFn/
// invalidateAllFn before calling anything that would invoke them.

func tlbiVAAE1IS(uint64) {}
func tlbiVMALLE1IS()     {}
func dsbISH()            {}
func isb()                {}
