//go:build mallocdebug

package rpheap

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestOrphanAdoptionCountsSteals is TestOrphanAdoption's companion under
// the mallocdebug build: it asserts the counter the plain build has no way
// to observe.
func TestOrphanAdoptionCountsSteals(t *testing.T) {
	a := NewAllocator(WithStatsEnabled(true))

	owner := a.NewHeap()
	var live [][]byte
	for i := 0; i < 50; i++ {
		b, err := owner.Alloc(40)
		require.NoError(t, err)
		live = append(live, b)
	}
	owner.Close()

	var wg sync.WaitGroup
	for i := 0; i < 11; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			h := a.NewHeap()
			defer h.Close()
			for j := idx; j < len(live); j += 11 {
				require.NoError(t, h.Free(live[j]))
			}
		}(i)
	}
	wg.Wait()

	require.Greater(t, a.DebugStats().OrphanSteals, uint64(0))
}
