package linker

import "sync/atomic"

// RegisterBank holds the global transform parameters consumed by the
// audio traversal: transpose, velocity multiplier, humanize strength,
// PRNG seed, and the active groove template. Every field is a single
// atomic store with no locking. RenderQuantum loads the PRNG seed once
// per quantum but loads the other registers (including the groove
// pointer) afresh for each active, unmuted node it visits, so a change made
// while a quantum is being rendered can apply to the remaining nodes of
// that quantum.
type RegisterBank struct {
	transpose           atomic.Int32
	velocityMultPPT     atomic.Int32 // parts-per-thousand, default 1000 (unity)
	humanizeTimingPPT   atomic.Int32
	humanizeVelocityPPT atomic.Int32
	prngSeed            atomic.Uint32
	groove              atomic.Pointer[GrooveTemplate]
}

// GrooveTemplate is a short table of tick offsets applied per
// beat-subdivision at audio time, looked up by base_tick mod len(Offsets).
// It is published by atomically swapping the RegisterBank's groove
// pointer, implementing the "populate then atomically publish" contract
// of the groove template writer collaborator.
type GrooveTemplate struct {
	Offsets []int32
}

// Transpose returns the current transpose register, in semitones.
func (r *RegisterBank) Transpose() int32 { return r.transpose.Load() }

// SetTranspose changes the transpose register live.
func (r *RegisterBank) SetTranspose(semitones int32) { r.transpose.Store(semitones) }

// VelocityMultPPT returns the velocity multiplier, in parts-per-thousand
// (1000 = unity).
func (r *RegisterBank) VelocityMultPPT() int32 { return r.velocityMultPPT.Load() }

// SetVelocityMultPPT changes the velocity multiplier live.
func (r *RegisterBank) SetVelocityMultPPT(ppt int32) { r.velocityMultPPT.Store(ppt) }

// HumanizeTimingPPT returns the timing-humanize strength register.
func (r *RegisterBank) HumanizeTimingPPT() int32 { return r.humanizeTimingPPT.Load() }

// SetHumanizeTimingPPT changes the timing-humanize strength live.
func (r *RegisterBank) SetHumanizeTimingPPT(ppt int32) { r.humanizeTimingPPT.Store(ppt) }

// HumanizeVelocityPPT returns the velocity-humanize strength register.
func (r *RegisterBank) HumanizeVelocityPPT() int32 { return r.humanizeVelocityPPT.Load() }

// SetHumanizeVelocityPPT changes the velocity-humanize strength live.
func (r *RegisterBank) SetHumanizeVelocityPPT(ppt int32) { r.humanizeVelocityPPT.Store(ppt) }

// PRNGSeed returns the humanize PRNG seed register.
func (r *RegisterBank) PRNGSeed() uint32 { return r.prngSeed.Load() }

// SetPRNGSeed changes the humanize PRNG seed live.
func (r *RegisterBank) SetPRNGSeed(seed uint32) { r.prngSeed.Store(seed) }

// PublishGroove atomically installs a new groove template, implementing
// the GrooveTemplateWriter collaborator contract. offsets is copied so
// the caller may safely reuse its backing array afterward.
func (r *RegisterBank) PublishGroove(offsets []int32) error {
	if len(offsets) == 0 || len(offsets) > 16 {
		return newInvalidPointer("groove template must have between 1 and 16 offsets")
	}
	cp := make([]int32, len(offsets))
	copy(cp, offsets)
	r.groove.Store(&GrooveTemplate{Offsets: cp})
	return nil
}

// Groove returns the currently published groove template, or nil if
// none has been published.
func (r *RegisterBank) Groove() *GrooveTemplate {
	return r.groove.Load()
}

// grooveOffset looks up the groove offset, in ticks, for baseTick. With
// no groove template published, it contributes no offset.
func grooveOffset(baseTick uint32, r *RegisterBank) int32 {
	g := r.groove.Load()
	if g == nil || len(g.Offsets) == 0 {
		return 0
	}
	return g.Offsets[baseTick%uint32(len(g.Offsets))]
}
