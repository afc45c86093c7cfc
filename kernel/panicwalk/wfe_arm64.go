//go:build arm64

package panicwalk

// wfe executes a single WFE; the halt loop spins on it forever.
func wfe()
