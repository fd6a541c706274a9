package rpheap

import "unsafe"

// getPageBlock implements the three-tier cache lookup of §4.2: thread-local
// stack, then the allocator's global stack, then the kernel. pageCount must
// be one of the three page-block sizes (8/16/32 pages by default).
func (h *Heap) getPageBlock(pageCount int) ([]byte, error) {
	class := pageClassByPageCount(pageCount)

	if node := h.localCache[class].pop(); node != nil {
		return unsafe.Slice((*byte)(node), pageCount*pageSize), nil
	}

	if node := h.alloc.globalCache[class].pop(); node != nil {
		return unsafe.Slice((*byte)(node), pageCount*pageSize), nil
	}

	return mmapPages(pageCount)
}

// putPageBlock returns an empty page-block to the cache hierarchy,
// falling through local → global → OS exactly as §4.2 prescribes.
func (h *Heap) putPageBlock(pb *pageBlock) {
	class := pageClassByPageCount(int(pb.pageCount))
	node := pb.base()

	if h.localCache[class].push(node) {
		return
	}
	if h.alloc.globalCache[class].push(node) {
		return
	}
	munmapPages(node, int(pb.pageCount))
}
