//go:build !arm64

package trap

// On the host test toolchain there is no real VBAR_EL1 and no vector
// table to install; InstallVectorTable is a no-op so kernel glue code can
// call it unconditionally regardless of build target. farFn stays nil, so
// FAR() already reports 0 without any host-specific override needed.

func InstallVectorTable(uintptr) {}
