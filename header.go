package rpheap

import (
	"fmt"
	"log/slog"
	"unsafe"
)

// Header bit layout (§3, §4.4), translated from allocator_header.h's
// bitfield macros into explicit Go shift/mask constants (Go has no packed
// bitfields over a single byte, so the macros become functions instead):
//
//	| type(1) | pageOffset(2+M) | valid(remaining) |
//
// With the default page multiplier M=3, that's a 1-bit type, a 5-bit page
// offset (enough to address any slot in the largest 32-page page-block),
// and a 2-bit validity tag.
const (
	headerTypeShift = 7
	headerTypeMask  = 1 << headerTypeShift

	headerTypeSmall = 0
	headerTypeLarge = headerTypeMask

	headerPageOffBits  = 2 + pageMultiplier
	headerSecurityBits = 8 - 1 - headerPageOffBits
	headerPageOffShift = headerSecurityBits
	headerPageOffMask  = ((1 << headerPageOffBits) - 1) << headerPageOffShift

	headerValidMask = (1 << headerSecurityBits) - 1
	headerValid     = headerValidMask // SECURITY_OPCODE (0xFF) & mask == mask
)

// ErrCorruptHeader is never returned to a caller (release/realloc abort on
// corruption per spec.md §7); it exists so the panic carries a typed,
// inspectable payload for tests that use recover.
type ErrCorruptHeader struct {
	Ptr    unsafe.Pointer
	Header byte
}

func (e *ErrCorruptHeader) Error() string {
	return fmt.Sprintf("rpheap: corrupt header 0x%02x at %p", e.Header, e.Ptr)
}

// Unwrap lets errors.Is match the panic value against ErrCorrupt.
func (e *ErrCorruptHeader) Unwrap() error { return ErrCorrupt }

// writeSmallHeader writes the 1-byte header immediately before obj, given
// the page-block's base address. Mirrors header_write_small.
func writeSmallHeader(pageBase unsafe.Pointer, obj unsafe.Pointer) {
	pageOffset := byte((uintptr(obj) - uintptr(pageBase)) >> pageBits)
	h := byte(headerTypeSmall) | byte(headerValid) | (pageOffset << headerPageOffShift)
	*(*byte)(unsafe.Pointer(uintptr(obj) - 1)) = h
}

// writeLargeHeader writes the 16-byte large-object header at the start of
// a large allocation's backing region. usableSize is the number of payload
// bytes available after the header (the original allocator stored the
// mapped page count here instead, which makes realloc's "is the current
// allocation big enough" check meaningless across page-boundaries; storing
// the usable byte capacity directly is what spec.md §4.6's realloc
// contract actually needs, so that's what is stored here).
func writeLargeHeader(base unsafe.Pointer, usableSize uint64) {
	*(*uint64)(base) = usableSize
	flagByte := (*byte)(unsafe.Pointer(uintptr(base) + largeHeaderSize - 1))
	*flagByte = byte(headerTypeLarge) | byte(headerValid)
}

// readLargeSize returns the usable byte capacity stored by writeLargeHeader.
func readLargeSize(base unsafe.Pointer) uint64 {
	return *(*uint64)(base)
}

// decodeHeader inspects the byte immediately before obj (the common small
// header; for large objects it is the 1-byte flag at offset
// largeHeaderSize-1 relative to the allocation's true base, which callers
// locate before calling this). It returns the object type and, for small
// objects, the page offset; it panics — after logging a diagnostic — if
// the validity tag does not match, exactly as spec.md §7 prescribes for
// corruption detected during release/realloc. logger is the owning
// Allocator's diagnostic sink (decodeHeader has no Allocator of its own to
// read one from); passing nil falls back to the package-level default.
func decodeHeader(obj unsafe.Pointer, logger *slog.Logger) (isLarge bool, pageOffset int) {
	hp := (*byte)(unsafe.Pointer(uintptr(obj) - 1))
	h := *hp
	if h&headerValidMask != headerValid {
		abortCorrupt(logger, unsafe.Pointer(hp), h)
	}
	return h&headerTypeMask != 0, int(h&headerPageOffMask) >> headerPageOffShift
}
