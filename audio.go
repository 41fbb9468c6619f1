package linker

import (
	"math"
	"time"
)

// Audio Traversal: the hard-realtime reader. No method here blocks,
// takes the chain mutex, or yields — it only ever performs versioned
// reads with the 50-iteration audio retry budget. The one allocation is
// the []Event slice RenderQuantum grows with append and returns.

// Event is one emitted, timestamped MIDI-like event for a rendering
// quantum.
type Event struct {
	TriggerTick uint32
	Opcode      EventOpcode
	Pitch       uint8
	Velocity    uint8
	Duration    uint32
	SourceID    uint32
	NodePtr     NodePtr
}

// TicksPerSample computes (BPM/60)*PPQ/sampleRate, the conversion factor
// from samples to ticks at the arena's current tempo and sample rate.
func (a *Arena) TicksPerSample() float64 {
	bpm := float64(a.BPM())
	ppq := float64(a.PPQ())
	rate := float64(a.SampleRate())
	if rate == 0 {
		return 0
	}
	return (bpm / 60.0) * ppq / rate
}

// Cursor returns the audio thread's cached traversal position.
func (l *Linker) Cursor() NodePtr { return l.cursor }

// reanchorCursor re-finds the cursor by walking from HEAD_PTR to the
// first node whose BASE_TICK is at or beyond the current playhead. It
// is only ever called from the audio thread, after observing
// COMMIT_FLAG == CommitPending.
func (l *Linker) reanchorCursor() {
	a := l.arena
	playhead := a.playheadTick.Load()
	cur := a.HeadPtr()
	for cur != NullPtr {
		snap, ok := a.readNodeForAudio(cur)
		if !ok {
			break
		}
		if snap.BaseTick >= playhead {
			break
		}
		cur = snap.Next
	}
	l.cursor = cur
}

// RenderQuantum processes one rendering quantum of quantumFrames audio
// frames: it handles a pending commit, walks the chain from the cached
// cursor while nodes fall within this quantum's tick span, applies the
// groove-then-humanize transform order, and advances PLAYHEAD_TICK by
// exactly the quantum's tick span (floored). Returns the events
// triggered within this quantum, in chain order.
func (l *Linker) RenderQuantum(quantumFrames uint32) []Event {
	a := l.arena

	if a.commit.Load() == CommitPending {
		l.reanchorCursor()
		a.commit.Store(CommitAck)
		if pendingAt := a.commitPendingAt.Load(); pendingAt != 0 {
			if elapsed := time.Now().UnixNano() - pendingAt; elapsed > 0 {
				a.metrics.RecordCommitLatency(uint64(elapsed))
			}
		}
	}

	ticksPerSample := a.TicksPerSample()
	quantumTicks := uint32(math.Floor(ticksPerSample * float64(quantumFrames)))
	playhead := a.playheadTick.Load()
	quantumEnd := playhead + quantumTicks

	registers := a.Registers()
	seed := registers.PRNGSeed()

	var events []Event
	cur := l.cursor
	for cur != NullPtr {
		snap, ok := a.readNodeForAudio(cur)
		if !ok {
			break
		}
		if snap.BaseTick >= quantumEnd {
			break
		}
		if snap.Active() && !snap.Muted() {
			groove := grooveOffset(snap.BaseTick, registers)
			humanizeTiming := humanizeTimingOffset(snap.BaseTick, seed, registers.HumanizeTimingPPT())
			triggerTick := int64(snap.BaseTick) + int64(groove) + int64(humanizeTiming)
			if triggerTick >= int64(playhead) && triggerTick < int64(quantumEnd) {
				pitch := clampUint8(int32(snap.Pitch) + registers.Transpose())
				velocity := clampUint8(
					int32(int64(snap.Velocity)*int64(registers.VelocityMultPPT())/1000) +
						humanizeVelocityOffset(snap.BaseTick, seed, registers.HumanizeVelocityPPT()),
				)
				events = append(events, Event{
					TriggerTick: uint32(triggerTick),
					Opcode:      snap.Opcode,
					Pitch:       pitch,
					Velocity:    velocity,
					Duration:    snap.Duration,
					SourceID:    snap.SourceID,
					NodePtr:     cur,
				})
			}
		}
		cur = snap.Next
	}
	l.cursor = cur
	a.playheadTick.Store(quantumEnd)
	return events
}
