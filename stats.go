package rpheap

// Stats is the snapshot returned by Allocator.DebugStats. Every field is
// the Go rendition of a counter from the original malloc_debug_stats(): it
// is always present in the exported type, but only ever non-zero when the
// binary is built with the mallocdebug tag (see stats_debug.go /
// stats_release.go) and WithStatsEnabled(true) was passed to NewAllocator.
type Stats struct {
	Allocations        uint64
	Frees              uint64
	RemoteFrees        uint64
	OrphanSteals       uint64
	PageBlocksMapped   uint64
	PageBlocksUnmapped uint64
}

// DebugStats returns the allocator's current counters. Outside the
// mallocdebug build this is a zero-valued, allocation-free no-op; spec.md
// §6's debug compile-flag becomes a Go build tag for exactly the same
// reason the original reserved these counters for a special build: the
// fast path must not pay for bookkeeping nobody asked for.
func (a *Allocator) DebugStats() Stats {
	if !a.statsEnabled {
		return Stats{}
	}
	return a.debugCounters.snapshot()
}
