package linker

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// scenarios_test.go exercises the literal end-to-end scenarios: a
// 4096-node arena, PPQ=480, BPM=120, safe zone=960.

func newScenarioArena(t *testing.T) (*Arena, *Linker) {
	t.Helper()
	a, err := NewArena(
		WithNodeCapacity(4096),
		WithPPQ(480),
		WithBPM(120),
		WithSafeZoneTicks(960),
		WithSampleRate(48000),
	)
	require.NoError(t, err)
	return a, NewLinker(a)
}

// S1 — Single note.
func TestScenarioS1SingleNote(t *testing.T) {
	a, lk := newScenarioArena(t)
	_, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, Velocity: 100, Duration: 240, BaseTick: 1920, SourceID: 1})
	require.NoError(t, err)
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	a.playheadTick.Store(1920)
	lk.reanchorCursor()
	events := lk.RenderQuantum(2500) // ~50 ticks at 0.02 ticks/sample

	require.Len(t, events, 1)
	require.Equal(t, uint32(1920), events[0].TriggerTick)
	require.Equal(t, uint8(60), events[0].Pitch)
	require.Equal(t, uint8(100), events[0].Velocity)
}

// S2 — Attribute patch during playback.
func TestScenarioS2AttributePatchDuringPlayback(t *testing.T) {
	a, lk := newScenarioArena(t)
	ptr, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, Velocity: 100, Duration: 240, BaseTick: 1920, SourceID: 1})
	require.NoError(t, err)
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	a.playheadTick.Store(0)
	seqBefore := seqOf(a.node(ptr).seqFlags.Load())
	commitBefore := a.commit.Load()

	require.NoError(t, a.PatchPitch(ptr, 64))

	snap, err := a.ReadNode(ptr)
	require.NoError(t, err)
	require.Equal(t, uint8(64), snap.Pitch)
	require.Equal(t, seqBefore+1, snap.Seq)
	require.Equal(t, commitBefore, a.commit.Load())
}

// S3 — Safe-zone violation.
func TestScenarioS3SafeZoneViolation(t *testing.T) {
	a, lk := newScenarioArena(t)
	head, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, Pitch: 60, BaseTick: 2000, SourceID: 1})
	require.NoError(t, err)
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	a.playheadTick.Store(1500)
	nodeCountBefore := a.NodeCount()

	_, err = lk.InsertAfter(head, NodeFields{Opcode: OpcodeNote, Pitch: 61, BaseTick: 2000, SourceID: 2})
	require.ErrorIs(t, err, ErrSafeZoneViolation)
	require.Equal(t, nodeCountBefore, a.NodeCount())
}

// S4 — Command-ring throughput.
func TestScenarioS4CommandRingThroughput(t *testing.T) {
	a, lk := newScenarioArena(t)
	initialCount := a.NodeCount()

	for i := uint32(0); i < 256; i++ {
		_, err := lk.SubmitInsertCommand(NodeFields{
			Opcode:   OpcodeNote,
			BaseTick: 10_000 + i,
			SourceID: i + 1,
		}, NullPtr)
		require.NoError(t, err)
	}

	processed, err := lk.ProcessCommands()
	require.NoError(t, err)
	require.Equal(t, 256, processed)
	require.Equal(t, initialCount+256, a.NodeCount())

	var ticks []uint32
	require.NoError(t, lk.Traverse(func(ptr NodePtr, snap NodeSnapshot) bool {
		ticks = append(ticks, snap.BaseTick)
		return true
	}))
	require.Len(t, ticks, 256)
	for i := 0; i < 256; i++ {
		require.Equal(t, uint32(10_000+255-i), ticks[i])
	}
}

// S5 — Identity-preserving rebuild. Both inserts and the delete go
// through the public Linker API only: InsertHead/Delete own the
// identity-table bookkeeping, exactly as §2 describes the worker doing
// it, so this scenario never touches Arena.Identity() directly.
func TestScenarioS5IdentityPreservingRebuild(t *testing.T) {
	a, lk := newScenarioArena(t)

	ptr, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: 10_000, SourceID: 42, FileHash: 0xAAAA, LineCol: 1})
	require.NoError(t, err)

	got, ok := a.Identity().Lookup(42)
	require.True(t, ok)
	require.Equal(t, ptr, got)

	tombstonesBefore := a.Identity().Used()

	require.NoError(t, lk.Delete(ptr))

	// A real caller using only Delete must never see a stale identity
	// entry point at a freed node slot.
	_, ok = a.Identity().Lookup(42)
	require.False(t, ok)

	newPtr, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: 10_001, SourceID: 42, FileHash: 0xBBBB, LineCol: 2})
	require.NoError(t, err)

	got, ok = a.Identity().Lookup(42)
	require.True(t, ok)
	require.Equal(t, newPtr, got)
	fileHash, lineCol, ok := a.Identity().LookupSymbol(42)
	require.True(t, ok)
	require.Equal(t, uint32(0xBBBB), fileHash)
	require.Equal(t, uint32(2), lineCol)
	// Re-inserting the same source id reuses its slot rather than
	// growing Used further.
	require.Equal(t, tombstonesBefore, a.Identity().Used())
}

// S6 — Heap exhaustion.
func TestScenarioS6HeapExhaustion(t *testing.T) {
	a, err := NewArena(WithNodeCapacity(8), WithZoneSplit(8), WithSafeZoneTicks(0))
	require.NoError(t, err)
	lk := NewLinker(a)

	var ptrs []NodePtr
	for a.FreeCount() > 0 {
		ptr, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: uint32(10_000 + len(ptrs)), SourceID: uint32(len(ptrs) + 1)})
		require.NoError(t, err)
		ptrs = append(ptrs, ptr)
	}
	require.Equal(t, uint32(0), a.FreeCount())

	_, err = lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: 99_999, SourceID: 999})
	require.ErrorIs(t, err, ErrHeapExhausted)
	require.Equal(t, ErrorHeapExhausted, a.ErrorFlag())

	require.NoError(t, lk.Delete(ptrs[0]))
	_, err = lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: 100_000, SourceID: 1000})
	require.NoError(t, err)
}

// Boundary: concurrent insert_head from worker while audio walks the chain.
func TestBoundaryConcurrentInsertHeadWhileAudioWalks(t *testing.T) {
	a, lk := newScenarioArena(t)
	a.SetSafeZoneTicks(0) // this test exercises concurrency, not the safe zone
	_, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: 0, SourceID: 1})
	require.NoError(t, err)
	lk.RenderQuantum(0) // audio side acknowledges the pending commit
	require.NoError(t, a.SyncAck())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			lk.RenderQuantum(128)
		}
	}()

	for i := 0; i < 50; i++ {
		_, err := lk.InsertHead(NodeFields{Opcode: OpcodeNote, BaseTick: uint32(10_000_000 + i), SourceID: uint32(i + 2)})
		require.NoError(t, err)
	}
	<-done
	// No panic, no deadlock: the audio thread never blocks on the chain
	// mutex, and the worker-side insert_head never blocks on the audio
	// thread's versioned reads.
}
