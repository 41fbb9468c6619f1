package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTicksPerSample(t *testing.T) {
	a, err := NewArena(WithBPM(120), WithPPQ(480), WithSampleRate(48000))
	require.NoError(t, err)
	// (120/60)*480/48000 = 2*480/48000 = 960/48000 = 0.02
	require.InDelta(t, 0.02, a.TicksPerSample(), 1e-9)
}

func TestRenderQuantumEmitsSingleNote(t *testing.T) {
	a, err := NewArena(
		WithNodeCapacity(64), WithZoneSplit(64),
		WithPPQ(480), WithBPM(120), WithSampleRate(48000),
		WithSafeZoneTicks(960),
	)
	require.NoError(t, err)
	lk := NewLinker(a)

	_, err = lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, Velocity: 100, BaseTick: 1920, Duration: 240, SourceID: 1})
	require.NoError(t, err)
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	// ticks_per_sample = 0.02; a 2500-frame quantum spans 50 ticks.
	a.playheadTick.Store(1920)
	lk.reanchorCursor()
	events := lk.RenderQuantum(2500)

	require.Len(t, events, 1)
	require.Equal(t, uint32(1920), events[0].TriggerTick)
	require.Equal(t, uint8(60), events[0].Pitch)
	require.Equal(t, uint8(100), events[0].Velocity)
}

func TestRenderQuantumReanchorsOnCommitPending(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(64), WithZoneSplit(64), WithPPQ(480), WithBPM(120), WithSampleRate(48000), WithSafeZoneTicks(0))
	require.NoError(t, err)
	lk := NewLinker(a)

	_, err = lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, BaseTick: 100, Duration: 10, SourceID: 1})
	require.NoError(t, err)

	require.Equal(t, CommitPending, a.commit.Load())
	lk.RenderQuantum(100)
	require.Equal(t, CommitAck, a.commit.Load())
}

func TestRenderQuantumSkipsMutedNotes(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(64), WithZoneSplit(64), WithPPQ(480), WithBPM(120), WithSampleRate(48000), WithSafeZoneTicks(0))
	require.NoError(t, err)
	lk := NewLinker(a)

	ptr, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, BaseTick: 0, Duration: 10, SourceID: 1})
	require.NoError(t, err)
	require.NoError(t, a.PatchMuted(ptr, true))
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	events := lk.RenderQuantum(2500)
	require.Empty(t, events)
}

func TestGrooveOffsetIndexesByBaseTickModLength(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(8), WithZoneSplit(8), WithPPQ(480), WithBPM(120), WithSampleRate(48000))
	require.NoError(t, err)
	require.NoError(t, a.Registers().PublishGroove([]int32{5, -3}))
	a.Registers().SetHumanizeTimingPPT(0) // isolate groove's effect for this assertion
	offset := grooveOffset(1, a.Registers())
	require.Equal(t, int32(-3), offset)
	offset = grooveOffset(0, a.Registers())
	require.Equal(t, int32(5), offset)
}

func TestHumanizeOffsetDeterministic(t *testing.T) {
	a, b := humanizeTimingOffset(1920, 7, 1000), humanizeTimingOffset(1920, 7, 1000)
	require.Equal(t, a, b)
	c := humanizeTimingOffset(1921, 7, 1000)
	require.NotEqual(t, a, c, "different base ticks should (almost always) mix to different offsets")
}
