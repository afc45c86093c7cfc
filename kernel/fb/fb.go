// Package fb implements the minimal linear framebuffer driver: negotiate a
// mode through kernel/mbox's property channel, map the GPU-allocated
// buffer, and expose byte-level pixel and (later) glyph plotting. spec.md
// §1 places the framebuffer among the "external collaborators" with a
// byte-level contract this core implements directly, the way kernel/uart
// does for the serial console.
//
// Grounded on iansmith-mazarin's framebuffer.go framebufferInit
// (FB_SET_PHYSICAL_DIMENSIONS / FB_SET_VIRTUAL_DIMENSIONS /
// FB_SET_BITS_PER_PIXEL / FB_GET_BYTES_PER_ROW / FB_ALLOCATE_BUFFER tag
// sequence) and colors.go's palette, ported onto kernel/mbox.Call instead
// of the teacher's own sendMessages, and onto internal/vmm/internal/addr
// for mapping the GPU-returned buffer address instead of the teacher's
// direct unsafe.Pointer cast.
package fb

import (
	"talon/internal/addr"
	"talon/kernel/mbox"
)

const bytesPerPixel = 4 // XRGB8888; simpler stride math than the teacher's 24-bit path

const (
	tagSetPhysicalDimensions = 0x00048003
	tagSetVirtualDimensions  = 0x00048004
	tagSetBitsPerPixel       = 0x00048005
	tagGetBytesPerRow        = 0x00040008
	tagAllocateBuffer        = 0x00040001
)

// callFn indirects every mbox.Call the way the rest of the module's host
// tests expect; real builds leave it pointing at mbox.Call.
var callFn = mbox.Call

// Info describes the negotiated mode: dimensions, pitch (bytes per row),
// and the mapped buffer.
type Info struct {
	Width, Height uint32
	Pitch         uint32
	bufPhys       addr.PhysAddr
	bufSize       uint32
}

type fbError struct{ msg string }

func (e *fbError) Error() string { return e.msg }

var ErrAllocateFailed = &fbError{"fb: GPU framebuffer allocation failed"}

// Init negotiates a width x height mode at 32 bits per pixel, the sequence
// framebufferInit follows: set physical/virtual dims and depth, query
// pitch, then request the buffer allocation.
func Init(width, height uint32) (Info, error) {
	setTags := []mbox.Tag{
		{ID: tagSetPhysicalDimensions, Values: []uint32{width, height}},
		{ID: tagSetVirtualDimensions, Values: []uint32{width, height}},
		{ID: tagSetBitsPerPixel, Values: []uint32{bytesPerPixel * 8}},
	}
	if err := callFn(setTags); err != nil {
		return Info{}, err
	}

	info := Info{Width: setTags[0].Values[0], Height: setTags[0].Values[1]}

	pitchTag := []mbox.Tag{{ID: tagGetBytesPerRow, Values: []uint32{0}}}
	if err := callFn(pitchTag); err == nil {
		info.Pitch = pitchTag[0].Values[0]
	} else {
		info.Pitch = info.Width * bytesPerPixel
	}

	allocTag := []mbox.Tag{{ID: tagAllocateBuffer, Values: []uint32{16, 0}}}
	if err := callFn(allocTag); err != nil {
		return Info{}, err
	}
	busAddr := allocTag[0].Values[0]
	size := allocTag[0].Values[1]
	if busAddr == 0 || size == 0 {
		return Info{}, ErrAllocateFailed
	}
	// The VideoCore returns a bus address with the uncached alias bit set
	// (the teacher's "+0x40000000" note in its sendMessages commentary);
	// mask it back to a plain physical address before the kernel's normal
	// HHDM projection is used to reach it.
	info.bufPhys = addr.NewPhysAddrCanonical(uint64(busAddr &^ 0xC000_0000))
	info.bufSize = size
	return info, nil
}

// PutPixel writes one XRGB8888 pixel through the buffer's HHDM alias.
func (info Info) PutPixel(x, y uint32, rgb uint32) error {
	off := uint64(y)*uint64(info.Pitch) + uint64(x)*bytesPerPixel
	if off+bytesPerPixel > uint64(info.bufSize) {
		return ErrOutOfBounds
	}
	v := info.bufPhys.AsHHDMVirt().AddBytes(off)
	return addr.WriteVolatile[uint32](v, rgb)
}

var ErrOutOfBounds = &fbError{"fb: pixel coordinates outside the allocated buffer"}

// Clear fills the whole buffer with rgb.
func (info Info) Clear(rgb uint32) error {
	for y := uint32(0); y < info.Height; y++ {
		for x := uint32(0); x < info.Width; x++ {
			if err := info.PutPixel(x, y, rgb); err != nil {
				return err
			}
		}
	}
	return nil
}
