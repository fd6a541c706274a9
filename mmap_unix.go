// Copyright 2011 Evan Shaw. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE-MMAP-GO file.

// +build darwin dragonfly freebsd linux openbsd solaris netbsd

// Modifications (c) 2017 The Memory Authors.

package rpheap

import (
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// osPageSize is the host MMU's actual page size, which on most platforms is
// a multiple of the allocator's own 4 KiB pageSize but is never assumed to
// equal it. mmapPages always over-allocates by one osPageSize block and
// trims the excess down to a pageSize-aligned region, the same align-then-
// trim trick the teacher's own mmap used for its large alignment
// granularity.
var osPageSize = os.Getpagesize()

// mmap0 and unmap use the pointer-based MmapPtr/MunmapPtr rather than
// unix.Mmap/Munmap: the slice-based pair only unmaps a whole mapping exactly
// as it was returned, while mmapPages trims sub-ranges of one.
func mmap0(size int) ([]byte, error) {
	p, err := unix.MmapPtr(-1, 0, nil, uintptr(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED|unix.MAP_ANON)
	if err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(p), size), nil
}

func unmap(addr unsafe.Pointer, size int) error {
	return unix.MunmapPtr(addr, uintptr(size))
}

// mmapPages reserves pageCount*pageSize bytes, aligned to pageSize, by
// over-allocating one alignment block and trimming whichever end doesn't
// land on a pageSize boundary.
func mmapPages(pageCount int) ([]byte, error) {
	size := pageCount * pageSize
	align := osPageSize
	if align < pageSize {
		align = pageSize
	}

	b, err := mmap0(size + align)
	if err != nil {
		return nil, err
	}

	mod := int(uintptr(unsafe.Pointer(&b[0]))) & (align - 1)
	if mod != 0 {
		n := align - mod
		if err := unmap(unsafe.Pointer(&b[0]), n); err != nil {
			return nil, err
		}
		b = b[n:]
	}

	if uintptr(unsafe.Pointer(&b[0]))&uintptr(pageMask) != 0 {
		panic("rpheap: mmapPages returned a misaligned region")
	}

	if tail := len(b) - size; tail > 0 {
		if err := unmap(unsafe.Pointer(&b[size]), tail); err != nil {
			return nil, err
		}
	}

	return b[:size:size], nil
}

// munmapPages releases a page-block previously returned by mmapPages.
func munmapPages(addr unsafe.Pointer, pageCount int) {
	_ = unmap(addr, pageCount*pageSize)
}
