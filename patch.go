package linker

// Attribute patcher: in-place, versioned field updates visible to the
// audio thread without disturbing COMMIT_FLAG. Every mutation bumps the
// node's sequence counter before performing its read-modify-write, so a
// concurrent versioned read that straddles the mutation observes a
// sequence mismatch and retries.

func bumpSeq(n *Node) {
	n.seqFlags.Add(1 << 8)
}

func seqOf(raw uint32) uint32 { return raw >> 8 }

// patchPackedA performs a CAS-retry read-modify-write on the PACKED_A
// word, applying fn to the current value to produce the next value.
func (a *Arena) patchPackedA(n *Node, fn func(uint32) uint32) {
	for {
		old := n.packedA.Load()
		next := fn(old)
		if n.packedA.CompareAndSwap(old, next) {
			return
		}
	}
}

// PatchPitch changes a linked node's pitch field.
func (a *Arena) PatchPitch(ptr NodePtr, pitch uint8) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	a.patchPackedA(n, func(old uint32) uint32 {
		return (old &^ (0xFF << 16)) | uint32(pitch)<<16
	})
	return nil
}

// PatchVelocity changes a linked node's velocity field.
func (a *Arena) PatchVelocity(ptr NodePtr, velocity uint8) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	a.patchPackedA(n, func(old uint32) uint32 {
		return (old &^ (0xFF << 8)) | uint32(velocity)<<8
	})
	return nil
}

// PatchMuted sets or clears the MUTED flag on a linked node.
func (a *Arena) PatchMuted(ptr NodePtr, muted bool) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	a.patchPackedA(n, func(old uint32) uint32 {
		if muted {
			return old | uint32(FlagMuted)
		}
		return old &^ uint32(FlagMuted)
	})
	return nil
}

// PatchDuration changes a linked node's duration, in ticks.
func (a *Arena) PatchDuration(ptr NodePtr, duration uint32) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	n.duration.Store(duration)
	return nil
}

// PatchBaseTick changes a linked node's grid-aligned event time. This
// does not move the node within the chain (topology is untouched); it
// only changes the value the audio traversal compares against the
// playhead and groove/humanize transforms. Callers that need to move a
// node's position in insertion order must delete and re-insert.
func (a *Arena) PatchBaseTick(ptr NodePtr, baseTick uint32) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	n.baseTick.Store(baseTick)
	return nil
}

// PatchSourceID changes a linked node's externally-supplied identity.
// Callers are responsible for updating the identity table separately;
// this only touches the node's own field.
func (a *Arena) PatchSourceID(ptr NodePtr, sourceID uint32) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	n.sourceID.Store(sourceID)
	return nil
}

// PatchField identifies one field for PatchMultiple.
type PatchField struct {
	Pitch    *uint8
	Velocity *uint8
	Muted    *bool
	Duration *uint32
	BaseTick *uint32
	SourceID *uint32
}

// PatchMultiple bumps the node's sequence once, then writes every field
// set in fields. Readers see either the fully-old or fully-new state
// for these fields, per the batch-update contract: any versioned read
// whose seq1/seq2 pair brackets this call observes a mismatch and
// retries, so it never observes a state where only some of the fields
// in one PatchMultiple call have been applied.
func (a *Arena) PatchMultiple(ptr NodePtr, fields PatchField) error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	n := a.node(ptr)
	bumpSeq(n)
	if fields.Pitch != nil {
		pitch := *fields.Pitch
		a.patchPackedA(n, func(old uint32) uint32 {
			return (old &^ (0xFF << 16)) | uint32(pitch)<<16
		})
	}
	if fields.Velocity != nil {
		velocity := *fields.Velocity
		a.patchPackedA(n, func(old uint32) uint32 {
			return (old &^ (0xFF << 8)) | uint32(velocity)<<8
		})
	}
	if fields.Muted != nil {
		muted := *fields.Muted
		a.patchPackedA(n, func(old uint32) uint32 {
			if muted {
				return old | uint32(FlagMuted)
			}
			return old &^ uint32(FlagMuted)
		})
	}
	if fields.Duration != nil {
		n.duration.Store(*fields.Duration)
	}
	if fields.BaseTick != nil {
		n.baseTick.Store(*fields.BaseTick)
	}
	if fields.SourceID != nil {
		n.sourceID.Store(*fields.SourceID)
	}
	return nil
}

// readSnapshot runs the versioned-read loop against a single node,
// retrying up to maxRetries times, yielding every yieldEverySpins
// attempts unless yield is false (never true on the audio thread).
func (a *Arena) readSnapshot(ptr NodePtr, maxRetries int, yield bool) (NodeSnapshot, bool) {
	n := a.node(ptr)
	for attempt := 1; attempt <= maxRetries; attempt++ {
		seq1 := n.seqFlags.Load()
		packed := n.packedA.Load()
		baseTick := n.baseTick.Load()
		duration := n.duration.Load()
		next := n.next.Load()
		prev := n.prev.Load()
		sourceID := n.sourceID.Load()
		seq2 := n.seqFlags.Load()
		if seq1 == seq2 {
			opcode, pitch, velocity, flags := unpackA(packed)
			return NodeSnapshot{
				Opcode:   opcode,
				Pitch:    pitch,
				Velocity: velocity,
				Flags:    flags,
				BaseTick: baseTick,
				Duration: duration,
				Next:     NodePtr(next),
				Prev:     NodePtr(prev),
				SourceID: sourceID,
				Seq:      seqOf(seq2),
			}, true
		}
		if yield && attempt%yieldEverySpins == 0 {
			zeroAllocYield(&a.yieldSlot)
		}
	}
	return NodeSnapshot{}, false
}

// ReadNode runs the versioned-read loop with the editor/worker retry
// budget (1000), yielding every 100 spins. It fails (rather than
// silently skipping) if the budget is exhausted, per the
// editor/worker-thread contention policy.
func (a *Arena) ReadNode(ptr NodePtr) (NodeSnapshot, error) {
	if err := a.validatePtr(ptr); err != nil {
		return NodeSnapshot{}, err
	}
	snap, ok := a.readSnapshot(ptr, coreRetryBudget, true)
	if !ok {
		return NodeSnapshot{}, ErrContention
	}
	return snap, nil
}

// readNodeForAudio runs the versioned-read loop with the audio-thread
// retry budget (50) and never yields. On exhaustion it reports
// contention via the metrics counter and returns ok=false so the caller
// skips the node for this quantum, exactly as the audio-thread
// contention policy requires.
func (a *Arena) readNodeForAudio(ptr NodePtr) (NodeSnapshot, bool) {
	snap, ok := a.readSnapshot(ptr, audioRetryBudget, false)
	if !ok {
		a.metrics.contentionSkips.Add(1)
	}
	return snap, ok
}
