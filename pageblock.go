package rpheap

import (
	"runtime"
	"sync/atomic"
	"unsafe"
)

// pageBlock is the header that sits at the very start of every mmap'd
// page-block, immediately followed by the slot payload area. Its layout
// is the direct translation of allocator_internal.h's page_t: management
// links, slot accounting, and the single synchronized word every
// cross-thread interaction goes through.
//
// Like the teacher's own `page` struct in memory.go, a *pageBlock is
// always obtained by casting the address of an mmap'd byte region — it is
// never allocated by the Go runtime and must never be treated as a normal
// GC-managed value.
type pageBlock struct {
	next, prev *pageBlock

	pageCount  uint32
	objectSize uint32

	allocated  uint32
	bumpOffset uint32
	localFree  uint32 // byte offset into the block; 0 = empty

	sync atomic.Uint64 // packed {threadID:24, remoteOffset:24, remoteCount:16}
}

var pageBlockHeaderSize = roundUp(int(unsafe.Sizeof(pageBlock{})), defaultAlign)

func roundUp(n, m int) int { return (n + m - 1) &^ (m - 1) }

// packSync/unpackSync implement the {thread-id, remotely-freed-offset,
// remotely-freed-count} word from §3: count in the low 16 bits, offset in
// the next 24, thread-id in the high 24.
func packSync(threadID, remoteOffset uint32, remoteCount uint16) uint64 {
	return uint64(remoteCount) | uint64(remoteOffset)<<remoteCountBits | uint64(threadID)<<(remoteCountBits+remoteOffsetBits)
}

func unpackSync(w uint64) (threadID, remoteOffset uint32, remoteCount uint16) {
	remoteCount = uint16(w & ((1 << remoteCountBits) - 1))
	remoteOffset = uint32((w >> remoteCountBits) & ((1 << remoteOffsetBits) - 1))
	threadID = uint32((w >> (remoteCountBits + remoteOffsetBits)) & ((1 << threadIDBits) - 1))
	return
}

// pageBlockInit writes a fresh header into mem (the raw mmap'd region)
// and returns it as a *pageBlock. Mirrors page_internal_init.
func pageBlockInit(mem []byte, objectSize uint16, pageCount int, threadID uint32) *pageBlock {
	pb := (*pageBlock)(unsafe.Pointer(&mem[0]))
	pb.next, pb.prev = nil, nil
	pb.objectSize = uint32(objectSize)
	pb.pageCount = uint32(pageCount)
	pb.allocated = 0
	pb.localFree = 0
	// bumpOffset is the payload offset of the next never-used slot; its
	// 1-byte header sits just before it, so the first payload starts at the
	// first 16-byte boundary that leaves room for that byte after the header.
	pb.bumpOffset = uint32(roundUp(pageBlockHeaderSize+1, defaultAlign))
	pb.sync.Store(packSync(threadID, 0, 0))
	return pb
}

// pageBlockOf recovers a small object's owning page-block from its payload
// pointer and the page-offset field decodeHeader read out of its header
// byte: align obj down to the page it lives in, then walk back pageOffset
// whole pages to the page-block's base. Mirrors the original's header
// decode followed by `page - (page_offset << PAGE_BITS)`.
func pageBlockOf(obj unsafe.Pointer, pageOffset int) *pageBlock {
	return (*pageBlock)(unsafe.Pointer(uintptr(obj) &^ uintptr(pageMask) - uintptr(pageOffset)*pageSize))
}

func (pb *pageBlock) base() unsafe.Pointer { return unsafe.Pointer(pb) }

func (pb *pageBlock) limit() uintptr {
	return uintptr(pb.base()) + uintptr(pb.pageCount)*pageSize
}

func (pb *pageBlock) slotAt(offset uint32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(pb.base()) + uintptr(offset))
}

func (pb *pageBlock) offsetOf(obj unsafe.Pointer) uint32 {
	return uint32(uintptr(obj) - uintptr(pb.base()))
}

// pushLocalFree links a just-freed slot (identified by its payload offset)
// onto the local-free LIFO and accounts for it in allocated. Mirrors
// STACK_PUSH_OBJECT. It must only be called by the owning goroutine.
func (pb *pageBlock) pushLocalFree(offset uint32) {
	*(*uint32)(pb.slotAt(offset)) = pb.localFree
	pb.localFree = offset
	pb.allocated--
}

// popLocalFree pops the local-free LIFO. Mirrors STACK_POP_OBJECT.
func (pb *pageBlock) popLocalFree() unsafe.Pointer {
	obj := pb.slotAt(pb.localFree)
	pb.localFree = *(*uint32)(obj)
	pb.allocated++
	return obj
}

// recycleRemote drains the synchronized word's remote-freed chain into the
// local-free LIFO, exactly once per batch of remote frees (§4.3 path 1).
// It CAS-loops on the sync word, re-reading on every retry so the chain it
// eventually walks is always the winning snapshot, never a stale one.
func (pb *pageBlock) recycleRemote() {
	var offset uint32
	for {
		old := pb.sync.Load()
		tid, off, count := unpackSync(old)
		if count == 0 {
			return
		}
		newWord := packSync(tid, 0, 0)
		if pb.sync.CompareAndSwap(old, newWord) {
			offset = off
			break
		}
		runtime.Gosched()
	}
	for offset != 0 {
		obj := pb.slotAt(offset)
		next := *(*uint32)(obj)
		pb.pushLocalFree(offset)
		offset = next
	}
}

// tryAlloc implements the three allocation paths of §4.3, in order:
// recycle remotely-freed slots, pop the local-free LIFO, or bump-allocate
// a never-used slot. Returns nil if the page-block is exhausted.
func (pb *pageBlock) tryAlloc() unsafe.Pointer {
	if _, _, remoteCount := unpackSync(pb.sync.Load()); remoteCount != 0 {
		pb.recycleRemote()
	}

	if pb.localFree != 0 {
		return pb.popLocalFree()
	}

	allocAddr := uintptr(pb.base()) + uintptr(pb.bumpOffset) - 1
	if allocAddr+uintptr(pb.objectSize) < pb.limit() {
		payload := pb.slotAt(pb.bumpOffset)
		writeSmallHeader(pb.base(), payload)
		pb.bumpOffset += pb.objectSize
		pb.allocated++
		return payload
	}

	return nil
}

// freeLocal pushes obj onto the local-free LIFO (the owning goroutine's
// cheap path) and reports whether the page-block became empty, so the
// caller (Heap, which owns the per-class list) can decide whether to
// evict it back to the cache hierarchy. Mirrors page_internal_free's
// owner-thread branch.
func (pb *pageBlock) freeLocal(obj unsafe.Pointer) (becameEmpty bool) {
	pb.pushLocalFree(pb.offsetOf(obj))
	return pb.allocated == 0
}

// freeRemote CAS-loops the slot onto the synchronized word's remote-freed
// chain (§4.3 path "remote free"). If the page-block was orphaned, it
// opportunistically claims ownership in the same CAS; the return value
// tells the caller whether that steal actually won, so it can splice the
// page-block into its own per-class list exactly once.
func (pb *pageBlock) freeRemote(obj unsafe.Pointer, threadID uint32) (stole bool) {
	offset := pb.offsetOf(obj)
	for {
		old := pb.sync.Load()
		oldTID, oldOffset, oldCount := unpackSync(old)

		*(*uint32)(obj) = oldOffset

		newTID := oldTID
		maybeStolen := false
		if oldTID == orphanID {
			newTID = threadID
			maybeStolen = true
		}

		newWord := packSync(newTID, offset, oldCount+1)
		if pb.sync.CompareAndSwap(old, newWord) {
			return maybeStolen && newTID == threadID
		}
		runtime.Gosched()
	}
}

// orphan marks pb as ownerless by CAS-ing the synchronized word's
// thread-id field to orphanID, preserving whatever remote-free chain is
// already queued. Used by Heap.Close() when a page-block being torn down
// still has outstanding allocations (§4.5 teardown).
func (pb *pageBlock) orphan() {
	for {
		old := pb.sync.Load()
		_, offset, count := unpackSync(old)
		newWord := packSync(orphanID, offset, count)
		if pb.sync.CompareAndSwap(old, newWord) {
			return
		}
		runtime.Gosched()
	}
}

// pageBlockList is a thread-owned, non-atomic doubly linked list of
// page-blocks, one per size class (§3 "thread-private heap"). It is never
// touched by a non-owning goroutine, matching allocator_list.h's
// insert_front_dq/remove_node_dq.
type pageBlockList struct {
	head, tail *pageBlock
}

func (l *pageBlockList) insertFront(pb *pageBlock) {
	pb.prev = nil
	pb.next = l.head
	if l.head != nil {
		l.head.prev = pb
	} else {
		l.tail = pb
	}
	l.head = pb
}

// removeNode unlinks pb from the list, whether it is the head, the tail or
// in between. Heap.Free only evicts an empty block that is not the head —
// the discipline allocator.cpp's page_internal_free follows, keeping the
// head around as a hot, reusable empty block — while popFront uses it to
// unlink the head.
func (l *pageBlockList) removeNode(pb *pageBlock) {
	if pb.prev != nil {
		pb.prev.next = pb.next
	} else {
		l.head = pb.next
	}
	if pb.next != nil {
		pb.next.prev = pb.prev
	} else {
		l.tail = pb.prev
	}
	pb.next, pb.prev = nil, nil
}

// popFront unlinks and returns the list's head, or nil if the list is empty.
func (l *pageBlockList) popFront() *pageBlock {
	pb := l.head
	if pb == nil {
		return nil
	}
	l.removeNode(pb)
	return pb
}
