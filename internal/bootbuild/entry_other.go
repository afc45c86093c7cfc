//go:build !arm64

package bootbuild

// Host-test fallback: there is no linker script or EL2 to lower from off
// target, so LinkerLayout returns the zero Layout and KernelMainFn is never
// invoked by this package. Tests exercise BuildTables directly with a
// Layout they construct by hand.
func LinkerLayout() Layout { return Layout{} }

// KernelMainFn mirrors the arm64 build's hook so callers can type-check
// against it without a build tag of their own.
var KernelMainFn func(Result)
