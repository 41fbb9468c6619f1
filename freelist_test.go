package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(4), WithZoneSplit(4))
	require.NoError(t, err)
	require.Equal(t, uint32(4), a.FreeCount())

	ptr, err := a.allocFree()
	require.NoError(t, err)
	require.NotEqual(t, NullPtr, ptr)
	require.Equal(t, uint32(3), a.FreeCount())
	require.Equal(t, uint32(1), a.NodeCount())

	a.freeNode(ptr)
	require.Equal(t, uint32(4), a.FreeCount())
	require.Equal(t, uint32(0), a.NodeCount())
}

func TestAllocFreeExhaustion(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(2), WithZoneSplit(2))
	require.NoError(t, err)

	p1, err := a.allocFree()
	require.NoError(t, err)
	p2, err := a.allocFree()
	require.NoError(t, err)
	require.NotEqual(t, p1, p2)

	_, err = a.allocFree()
	require.ErrorIs(t, err, ErrHeapExhausted)
	require.Equal(t, ErrorHeapExhausted, a.ErrorFlag())

	a.freeNode(p1)
	p3, err := a.allocFree()
	require.NoError(t, err)
	require.Equal(t, p1, p3)
}

func TestFreeBumpsSequence(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(4), WithZoneSplit(4))
	require.NoError(t, err)

	ptr, err := a.allocFree()
	require.NoError(t, err)
	n := a.node(ptr)
	seqBefore := seqOf(n.seqFlags.Load())

	for i := 0; i < 5; i++ {
		a.freeNode(ptr)
		var reallocErr error
		ptr, reallocErr = a.allocFree()
		require.NoError(t, reallocErr)
	}
	seqAfter := seqOf(a.node(ptr).seqFlags.Load())
	require.GreaterOrEqual(t, seqAfter-seqBefore, uint32(5))
}

func TestFreeNodeIgnoresZoneB(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(4), WithZoneSplit(2))
	require.NoError(t, err)

	ptr, err := a.AllocBump()
	require.NoError(t, err)
	require.Equal(t, uint32(2), a.FreeCount())

	a.nodeCount.Add(1) // simulate the node having been linked
	a.freeNode(ptr)
	// Zone B has no reclamation: FreeCount must not grow.
	require.Equal(t, uint32(2), a.FreeCount())
	require.Equal(t, uint32(0), a.NodeCount())
}
