// Package mbox implements a minimal BCM283x/BCM2711 mailbox
// property-channel client: enough to issue a property-tag request and
// read back the GPU's response, the one contract spec.md §1 and §4.D
// place on the mailbox at the core's boundary ("mailbox is a driver
// consuming IRQs"; SPEC_FULL.md §5 restores the request path itself so
// kernel/fb has somewhere real to drive).
//
// Grounded on iansmith-mazarin's framebuffer.go sendMessages flow
// (16-byte-aligned request buffer, NULL-tag terminated, request/response
// code at offset 4), trimmed to the single-tag-batch shape this core
// needs and stripped of its UART debug narration — every step there is
// logged to the byte; here the caller decides what's worth logging.
package mbox

import (
	"unsafe"

	"talon/internal/addr"
)

const (
	offRead   = 0x00
	offStatus = 0x18
	offWrite  = 0x20

	statusFull  = 1 << 31
	statusEmpty = 1 << 30

	// PropertyChannel is the mailbox channel number the GPU firmware
	// dedicates to property-tag requests.
	PropertyChannel = 8
)

// Base is the mailbox MMIO base, set by the platform build tag file the
// way kernel/uart.Base is.
var Base addr.VirtAddr

var (
	mmioReadFn  = mmioRead
	mmioWriteFn = mmioWrite
)

func mmioRead(off uint32) uint32 {
	v, err := addr.ReadVolatile[uint32](Base.AddBytes(uint64(off)))
	if err != nil {
		panic("mbox: " + err.Error())
	}
	return v
}

func mmioWrite(off uint32, v uint32) {
	if err := addr.WriteVolatile[uint32](Base.AddBytes(uint64(off)), v); err != nil {
		panic("mbox: " + err.Error())
	}
}

// Tag is one property-tag request/response pair: the tag ID, the
// request/response value buffer (sized to the larger of the two by the
// caller), and after Call returns, RespLen carries the GPU's reported
// response length with the response bit masked off.
type Tag struct {
	ID      uint32
	Values  []uint32
	RespLen uint32
}

// maxMessageWords bounds the request buffer the way the teacher's
// sendMessages does (its own 1 KiB cap) — property-tag batches in this
// core are small and fixed (framebuffer setup), never open-ended.
const maxMessageWords = 256

// Call builds one property-channel request out of tags, sends it, and
// waits for the matching response; on success every Tag's Values is
// overwritten in place with the GPU's response words and RespLen is set.
func Call(tags []Tag) error {
	if Base.IsNull() {
		return errNoMailbox
	}
	var buf [maxMessageWords]uint32
	// buf[0] = total size in bytes (patched after encoding), buf[1] =
	// request code (0), then each tag's (id, buflen, reqlen, values...),
	// then a zero end tag.
	pos := 2
	tagValuePos := make([]int, len(tags))
	for i, t := range tags {
		buf[pos] = t.ID
		pos++
		buf[pos] = uint32(len(t.Values)) * 4
		pos++
		buf[pos] = 0 // request code
		pos++
		tagValuePos[i] = pos
		for _, v := range t.Values {
			buf[pos] = v
			pos++
		}
	}
	buf[pos] = 0 // end tag
	pos++
	buf[0] = uint32(pos) * 4
	buf[1] = 0

	phys := uintptr(unsafe.Pointer(&buf[0]))
	if err := send(uint32(phys)); err != nil {
		return err
	}

	for i, t := range tags {
		respLen := buf[tagValuePos[i]-1]
		tags[i].RespLen = respLen &^ 0x8000_0000
		for j := range t.Values {
			tags[i].Values[j] = buf[tagValuePos[i]+j]
		}
	}
	if buf[1]&0x8000_0000 == 0 {
		return errNoResponse
	}
	return nil
}

type mboxError struct{ msg string }

func (e *mboxError) Error() string { return e.msg }

var errNoResponse = &mboxError{"mbox: no response from GPU"}
var errNoMailbox = &mboxError{"mbox: no mailbox device on this platform"}

// send writes the request's physical address (mailbox-format, channel
// in the low 4 bits) and spins for the matching reply on the same
// channel, per the BCM283x mailbox protocol.
func send(physAddr uint32) error {
	for mmioReadFn(offStatus)&statusFull != 0 {
	}
	mmioWriteFn(offWrite, (physAddr&^0xf)|PropertyChannel)

	for {
		for mmioReadFn(offStatus)&statusEmpty != 0 {
		}
		reply := mmioReadFn(offRead)
		if reply&0xf == PropertyChannel {
			return nil
		}
	}
}
