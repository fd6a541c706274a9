package rpheap

import (
	"sync"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

// TestCountedStackConcurrency races 5 goroutines popping from a stack
// pre-populated with countMax nodes until it is empty, and checks that
// every node that started on the stack was popped exactly once — nothing
// lost, no double-pop, regardless of interleaving. The goroutines only pop;
// no node is pushed back while the others are popping.
func TestCountedStackConcurrency(t *testing.T) {
	const n = 4095 // countMax
	backing, err := mmapPages(n)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), n)

	var s atomicStack
	nodes := make(map[unsafe.Pointer]bool, n)
	for i := 0; i < n; i++ {
		p := unsafe.Pointer(&backing[i*pageSize])
		nodes[p] = true
		require.True(t, s.push(p))
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	seen := make(map[unsafe.Pointer]int)

	for g := 0; g < 5; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var held []unsafe.Pointer
			for {
				p := s.pop()
				if p == nil {
					break
				}
				held = append(held, p)
			}
			mu.Lock()
			for _, p := range held {
				seen[p]++
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seen, n, "every pushed node should be popped exactly once across all goroutines")
	for p, count := range seen {
		require.Truef(t, nodes[p], "popped a pointer that was never pushed: %p", p)
		require.Equalf(t, 1, count, "node %p was popped more than once", p)
	}
	require.Nil(t, s.pop(), "stack should be drained")
}

func TestAtomicStackPushFailsWhenSaturated(t *testing.T) {
	backing, err := mmapPages(1)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), 1)
	node := unsafe.Pointer(&backing[0])

	var s atomicStack
	s.word.Store(packWord(0, countMax, 0))
	require.False(t, s.push(node), "push must refuse once the count has saturated")
}

func TestLocalStackPushPop(t *testing.T) {
	backing, err := mmapPages(3)
	require.NoError(t, err)
	defer munmapPages(unsafe.Pointer(&backing[0]), 3)
	var s localStack
	require.True(t, s.empty())

	a := unsafe.Pointer(&backing[0*pageSize])
	b := unsafe.Pointer(&backing[1*pageSize])
	require.True(t, s.push(a))
	require.True(t, s.push(b))
	require.False(t, s.empty())

	require.Equal(t, b, s.pop())
	require.Equal(t, a, s.pop())
	require.True(t, s.empty())
	require.Nil(t, s.pop())
}
