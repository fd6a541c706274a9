package rpheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestSmallHeaderRoundTrip(t *testing.T) {
	backing, err := mmapPages(1)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), 1)

	base := unsafe.Pointer(&backing[0])
	obj := unsafe.Pointer(&backing[pageBlockHeaderSize+1])

	writeSmallHeader(base, obj)
	isLarge, pageOffset := decodeHeader(obj, nil)
	require.False(t, isLarge)
	require.Equal(t, 0, pageOffset)
}

func TestLargeHeaderRoundTrip(t *testing.T) {
	backing, err := mmapPages(1)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), 1)

	base := unsafe.Pointer(&backing[0])
	const usable = uint64(pageSize - largeHeaderSize)
	writeLargeHeader(base, usable)

	require.Equal(t, usable, readLargeSize(base))

	payload := unsafe.Pointer(uintptr(base) + largeHeaderSize)
	isLarge, _ := decodeHeader(payload, nil)
	require.True(t, isLarge)
}

func TestDecodeHeaderAbortsOnCorruption(t *testing.T) {
	backing, err := mmapPages(1)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), 1)

	obj := unsafe.Pointer(&backing[pageBlockHeaderSize+1])
	*(*byte)(unsafe.Pointer(uintptr(obj) - 1)) = 0xA8 // validity tag bits clear: never a value writeSmallHeader produces

	require.Panics(t, func() {
		decodeHeader(obj, nil)
	})
}
