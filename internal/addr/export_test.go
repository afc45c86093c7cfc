package addr

import "unsafe"

// uintptrOf returns the address of a host-test-local value so Read/Write
// round-trip tests can exercise real memory without a mapped kernel.
func uintptrOf[T any](p *T) uint64 {
	return uint64(uintptr(unsafe.Pointer(p)))
}
