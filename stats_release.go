//go:build !mallocdebug

package rpheap

// debugCounters is a zero-size stand-in outside the mallocdebug build; its
// methods compile away to nothing so the hot alloc/free paths carry no
// bookkeeping cost when stats aren't being measured.
type debugCounters struct{}

func (c *debugCounters) snapshot() Stats { return Stats{} }

func (c *debugCounters) incAllocations()        {}
func (c *debugCounters) incFrees()              {}
func (c *debugCounters) incRemoteFrees()        {}
func (c *debugCounters) incOrphanSteals()       {}
func (c *debugCounters) incPageBlocksMapped()   {}
func (c *debugCounters) incPageBlocksUnmapped() {}
