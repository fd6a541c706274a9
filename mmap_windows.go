// Copyright 2017 The Memory Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package rpheap

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

// mmapPages reserves and commits pageCount*pageSize bytes via VirtualAlloc.
// Windows' allocation granularity (64 KiB on every supported release) is
// always a multiple of the allocator's 4 KiB pageSize, so unlike
// mmapPages on Unix no align-then-trim step is needed here.
func mmapPages(pageCount int) ([]byte, error) {
	size := pageCount * pageSize
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, err
	}

	if addr&uintptr(pageMask) != 0 {
		panic("rpheap: mmapPages returned a misaligned region")
	}

	return unsafe.Slice((*byte)(unsafe.Pointer(addr)), size), nil
}

// munmapPages releases a page-block previously returned by mmapPages.
func munmapPages(addr unsafe.Pointer, pageCount int) {
	_ = windows.VirtualFree(uintptr(addr), 0, windows.MEM_RELEASE)
}
