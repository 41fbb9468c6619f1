package linker

// humanize.go implements the deterministic, PRNG-driven perturbation of
// event timing/velocity applied at audio time, seeded by
// (base_tick * 2654435761) xor prng_seed. The source demands a pure,
// stateless function of two integers rather than a stream generator, so
// this uses a splitmix64-style finalizer (public-domain mixing
// constants, the same family of bit-mixing step used to decorrelate
// hash-table probe sequences) instead of math/rand.

const humanizeHashMultiplier uint64 = 2654435761

// humanizeMix produces a well-distributed 64-bit value deterministic in
// (baseTick, seed) alone.
func humanizeMix(baseTick uint32, seed uint32) uint64 {
	x := (uint64(baseTick)*humanizeHashMultiplier ^ uint64(seed))
	x ^= x >> 33
	x *= 0xff51afd7ed558ccd
	x ^= x >> 33
	x *= 0xc4ceb9fe1a85ec53
	x ^= x >> 33
	return x
}

// maxHumanizeJitterTicks bounds the timing jitter humanize can apply at
// full (1000 ppt) strength.
const maxHumanizeJitterTicks = 24

// maxHumanizeVelocityJitter bounds the velocity jitter humanize can
// apply at full (1000 ppt) strength.
const maxHumanizeVelocityJitter = 16

// humanizeTimingOffset returns a signed tick offset in
// [-maxHumanizeJitterTicks, maxHumanizeJitterTicks], scaled by the
// timing-humanize register (parts-per-thousand).
func humanizeTimingOffset(baseTick uint32, seed uint32, ppt int32) int32 {
	if ppt == 0 {
		return 0
	}
	mixed := humanizeMix(baseTick, seed)
	// Take the low bits for timing, a disjoint high-bit slice for
	// velocity (see humanizeVelocityOffset), so the two jitters drawn
	// from one mix call are not the same value reused twice.
	frac := int64(mixed&0xFFFF) - 0x8000 // symmetric range
	offset := frac * int64(maxHumanizeJitterTicks) * int64(ppt) / (0x8000 * 1000)
	return int32(offset)
}

// humanizeVelocityOffset returns a signed velocity delta, scaled by the
// velocity-humanize register (parts-per-thousand).
func humanizeVelocityOffset(baseTick uint32, seed uint32, ppt int32) int32 {
	if ppt == 0 {
		return 0
	}
	mixed := humanizeMix(baseTick, seed)
	frac := int64((mixed>>32)&0xFFFF) - 0x8000
	offset := frac * int64(maxHumanizeVelocityJitter) * int64(ppt) / (0x8000 * 1000)
	return int32(offset)
}

func clampUint8(v int32) uint8 {
	if v < 0 {
		return 0
	}
	if v > 127 {
		return 127
	}
	return uint8(v)
}
