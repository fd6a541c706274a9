package rpheap

import (
	"log/slog"
	"sync/atomic"
)

// Allocator is the process-wide shared state: the global page-block cache
// tier and the per-heap thread-id allocator. It carries no per-object
// bookkeeping of its own — every Heap obtained from it owns its own
// per-class page-block lists, exactly as spec.md §3 describes the
// allocator/heap split.
type Allocator struct {
	// globalCache is the second cache tier (§4.2), one atomic counted
	// stack per page-block size class, shared by every Heap.
	globalCache [classPagesNum]atomicStack

	nextThreadID atomic.Uint32

	logger       *slog.Logger
	statsEnabled bool

	debugCounters debugCounters
}

// NewAllocator builds a fresh, independent allocator instance. Most
// programs want exactly one, shared across every goroutine that calls
// NewHeap; constructing more than one is legal but means the two pools
// never share cached page-blocks with each other.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		logger: currentLogger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewHeap hands back a fresh, independent *Heap bound to a (a)'s cache
// hierarchy. Callers must treat the returned *Heap the way the original
// treats a thread's private heap: one goroutine at a time drives Alloc on
// it (Free is fine from any goroutine — that's the whole point of the
// remote-free protocol), and Close() should run via defer when the
// goroutine is done allocating from it. See the THREAD MODEL REDESIGN
// note: there is no implicit per-goroutine heap, acquisition is explicit.
func (a *Allocator) NewHeap() *Heap {
	h := &Heap{
		alloc:    a,
		threadID: a.nextThreadID.Add(1),
	}
	h.armFinalizer()
	return h
}
