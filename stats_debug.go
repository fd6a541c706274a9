//go:build mallocdebug

package rpheap

import "sync/atomic"

// debugCounters backs Stats when built with -tags mallocdebug. Every field
// is bumped with a plain atomic.Uint64.Add from whichever goroutine hits
// the corresponding path; no locking, no global mutex, same as the rest of
// the allocator's cross-goroutine bookkeeping.
type debugCounters struct {
	allocations        atomic.Uint64
	frees              atomic.Uint64
	remoteFrees        atomic.Uint64
	orphanSteals       atomic.Uint64
	pageBlocksMapped   atomic.Uint64
	pageBlocksUnmapped atomic.Uint64
}

func (c *debugCounters) snapshot() Stats {
	return Stats{
		Allocations:        c.allocations.Load(),
		Frees:              c.frees.Load(),
		RemoteFrees:        c.remoteFrees.Load(),
		OrphanSteals:       c.orphanSteals.Load(),
		PageBlocksMapped:   c.pageBlocksMapped.Load(),
		PageBlocksUnmapped: c.pageBlocksUnmapped.Load(),
	}
}

func (c *debugCounters) incAllocations()        { c.allocations.Add(1) }
func (c *debugCounters) incFrees()              { c.frees.Add(1) }
func (c *debugCounters) incRemoteFrees()        { c.remoteFrees.Add(1) }
func (c *debugCounters) incOrphanSteals()       { c.orphanSteals.Add(1) }
func (c *debugCounters) incPageBlocksMapped()   { c.pageBlocksMapped.Add(1) }
func (c *debugCounters) incPageBlocksUnmapped() { c.pageBlocksUnmapped.Add(1) }
