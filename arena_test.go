package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewArenaDefaults(t *testing.T) {
	a, err := NewArena()
	require.NoError(t, err)
	require.Equal(t, uint32(defaultNodeCapacity), a.NodeCapacity())
	require.Equal(t, uint32(defaultNodeCapacity/2), a.FreeCount())
	require.Equal(t, uint32(0), a.NodeCount())
	require.Equal(t, NullPtr, a.HeadPtr())
	require.False(t, a.Poisoned())
}

func TestNewArenaRejectsZoneSplitExceedingCapacity(t *testing.T) {
	_, err := NewArena(WithNodeCapacity(10), WithZoneSplit(20))
	require.Error(t, err)
}

func TestPackUnpackA(t *testing.T) {
	v := packA(OpcodeNote, 60, 100, FlagActive|FlagMuted)
	opcode, pitch, velocity, flags := unpackA(v)
	require.Equal(t, OpcodeNote, opcode)
	require.Equal(t, uint8(60), pitch)
	require.Equal(t, uint8(100), velocity)
	require.Equal(t, FlagActive|FlagMuted, flags)
}

func TestPtrIndexRoundTrip(t *testing.T) {
	for _, idx := range []uint32{0, 1, 5, 4095} {
		ptr := ptrForIndex(idx)
		require.NotEqual(t, NullPtr, ptr)
		require.Equal(t, idx, indexForPtr(ptr))
	}
}

func TestValidatePtr(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(16), WithZoneSplit(16))
	require.NoError(t, err)

	require.ErrorIs(t, a.validatePtr(NullPtr), ErrInvalidPointer)
	require.Error(t, a.validatePtr(NodePtr(3))) // not node-aligned
	require.Error(t, a.validatePtr(NodePtr(17*nodeSize)))
	require.NoError(t, a.validatePtr(ptrForIndex(0)))
	require.NoError(t, a.validatePtr(ptrForIndex(15)))
}
