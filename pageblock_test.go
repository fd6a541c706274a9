package rpheap

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func newTestPageBlock(t *testing.T, classIdx int, threadID uint32) (*pageBlock, func()) {
	_, pageCount := classSizeDecode(int(classSizes[classIdx]) - 1)
	mem, err := mmapPages(pageCount)
	require.NoError(t, err)
	pb := pageBlockInit(mem, classSizes[classIdx], pageCount, threadID)
	return pb, func() { munmapPages(pb.base(), pageCount) }
}

func TestPageBlockBumpAllocExhaustsThenRecycles(t *testing.T) {
	pb, cleanup := newTestPageBlock(t, 0, 1)
	defer cleanup()

	var allocated []unsafe.Pointer
	for {
		obj := pb.tryAlloc()
		if obj == nil {
			break
		}
		allocated = append(allocated, obj)
	}
	require.NotEmpty(t, allocated)

	becameEmpty := pb.freeLocal(allocated[0])
	require.False(t, becameEmpty)

	recycled := pb.tryAlloc()
	require.Equal(t, allocated[0], recycled, "a freed slot must be the next one recycled (LIFO)")
}

func TestPageBlockFreeLocalEmptiesWhenLastSlotGoes(t *testing.T) {
	pb, cleanup := newTestPageBlock(t, 0, 1)
	defer cleanup()

	var allocated []unsafe.Pointer
	for {
		obj := pb.tryAlloc()
		if obj == nil {
			break
		}
		allocated = append(allocated, obj)
	}

	for i, obj := range allocated {
		becameEmpty := pb.freeLocal(obj)
		if i == len(allocated)-1 {
			require.True(t, becameEmpty)
		} else {
			require.False(t, becameEmpty)
		}
	}
}

// TestOrphanAdoptionSteal exercises the single-CAS ownership steal: once a
// page-block is orphaned, the first remote free against it must claim
// ownership, and every subsequent remote free must not re-claim it.
func TestOrphanAdoptionSteal(t *testing.T) {
	pb, cleanup := newTestPageBlock(t, 0, 1)
	defer cleanup()

	obj := pb.tryAlloc()
	require.NotNil(t, obj)
	obj2 := pb.tryAlloc()
	require.NotNil(t, obj2)

	pb.orphan()
	tid, _, _ := unpackSync(pb.sync.Load())
	require.Equal(t, uint32(orphanID), tid)

	stole := pb.freeRemote(obj, 7)
	require.True(t, stole, "first remote free against an orphan must steal ownership")

	newTID, _, count := unpackSync(pb.sync.Load())
	require.Equal(t, uint32(7), newTID)
	require.Equal(t, uint16(1), count)

	stoleAgain := pb.freeRemote(obj2, 9)
	require.False(t, stoleAgain, "a page-block already owned by thread 7 must not be stolen by thread 9's free")

	tidAfter, _, countAfter := unpackSync(pb.sync.Load())
	require.Equal(t, uint32(7), tidAfter)
	require.Equal(t, uint16(2), countAfter)
}

func TestPageBlockRecycleRemoteDrainsChain(t *testing.T) {
	pb, cleanup := newTestPageBlock(t, 0, 1)
	defer cleanup()

	var allocated []unsafe.Pointer
	for i := 0; i < 4; i++ {
		obj := pb.tryAlloc()
		require.NotNil(t, obj)
		allocated = append(allocated, obj)
	}

	for _, obj := range allocated {
		pb.freeRemote(obj, 1)
	}

	_, _, remoteCount := unpackSync(pb.sync.Load())
	require.Equal(t, uint16(len(allocated)), remoteCount)

	pb.recycleRemote()
	_, _, remoteCountAfter := unpackSync(pb.sync.Load())
	require.Zero(t, remoteCountAfter)

	seen := map[unsafe.Pointer]bool{}
	for range allocated {
		obj := pb.popLocalFree()
		seen[obj] = true
	}
	for _, obj := range allocated {
		require.True(t, seen[obj])
	}
}

func TestPageBlockListInsertAndRemove(t *testing.T) {
	a, cleanupA := newTestPageBlock(t, 0, 1)
	defer cleanupA()
	b, cleanupB := newTestPageBlock(t, 0, 1)
	defer cleanupB()

	var list pageBlockList
	list.insertFront(a)
	list.insertFront(b)
	require.Equal(t, b, list.head)
	require.Equal(t, a, list.tail)

	list.removeNode(a)
	require.Equal(t, b, list.head)
	require.Equal(t, b, list.tail)

	popped := list.popFront()
	require.Equal(t, b, popped)
	require.Nil(t, list.head)
	require.Nil(t, list.tail)
}
