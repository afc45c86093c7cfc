//go:build !arm64

package sched

// Host-test fallback: there is no real machine stack to swap, so
// switchToFn is expected to be replaced by the test before calling
// Switch() on anything that would otherwise dereference these contexts'
// stack pointers.

func switchTo(prev, next *ArchContext) {}
func cpuPauseFn()                      {}
