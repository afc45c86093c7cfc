//go:build !arm64

package main

// Host-test fallbacks for non-arm64 builds. kernelMain itself is never
// exercised under `go test` (it never returns and drives real MMIO); these
// exist only so the package builds under `go vet`/`go test` on a
// development machine the way every other package's `_other.go` stub does.

func loadTTBR0(uint64)  {}
func loadTTBR1(uint64)  {}
func invalidateAllTLB() {}
func enableInterruptsAsm() {}
func wfi()              {}

func swapTTBR(root uint64, isUser bool) {
	if isUser {
		loadTTBR0(root)
	} else {
		loadTTBR1(root)
	}
}

var (
	loadTTBRFn         = swapTTBR
	invalidateAllTLBFn = invalidateAllTLB
	enableInterruptsFn = enableInterruptsAsm
	wfiFn              = wfi
)
