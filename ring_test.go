package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommandRingPushPop(t *testing.T) {
	r := newCommandRing(4)
	require.Equal(t, uint32(0), r.Len())

	require.NoError(t, r.Push(Command{Opcode: CommandInsert, Param1: 1}))
	require.Equal(t, uint32(1), r.Len())

	cmd, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, CommandInsert, cmd.Opcode)
	require.Equal(t, uint32(1), cmd.Param1)

	_, ok = r.Pop()
	require.False(t, ok)
}

func TestCommandRingOverflow(t *testing.T) {
	r := newCommandRing(4)
	// Capacity 4 holds at most 3 live entries (full ≡ (tail+1)%cap == head).
	for i := 0; i < 3; i++ {
		require.NoError(t, r.Push(Command{Opcode: CommandInsert, Param1: uint32(i)}))
	}
	err := r.Push(Command{Opcode: CommandInsert, Param1: 99})
	require.ErrorIs(t, err, ErrCommandQueueOverflow)
}

func TestCommandRingFIFOOrder(t *testing.T) {
	r := newCommandRing(8)
	for i := uint32(0); i < 5; i++ {
		require.NoError(t, r.Push(Command{Opcode: CommandInsert, Param1: i}))
	}
	for i := uint32(0); i < 5; i++ {
		cmd, ok := r.Pop()
		require.True(t, ok)
		require.Equal(t, i, cmd.Param1)
	}
}

func TestCommandRingThroughput256(t *testing.T) {
	r := newCommandRing(512)
	for i := uint32(0); i < 256; i++ {
		require.NoError(t, r.Push(Command{Opcode: CommandInsert, Param1: 10_000 + i, Param2: 0}))
	}
	count := 0
	for {
		_, ok := r.Pop()
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, 256, count)
}
