//go:build !arm64

package panicwalk

// wfe is a no-op off-target: haltFn is always overridden under host
// tests, so this body never actually runs.
func wfe() {}
