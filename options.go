package linker

// arenaConfig holds the resolved configuration for NewArena, built up
// by applying an ordered slice of ArenaOption, following the shape of
// eventloop's loopOptions / LoopOption.
type arenaConfig struct {
	nodeCapacity        uint32
	zoneSplit           uint32
	zoneSplitSet        bool
	ppq                 uint32
	bpm                 uint32
	safeZoneTicks       uint32
	identityCapacity    uint32
	commandRingCapacity uint32
	sampleRate          uint32
	logger              *Logger
}

// ArenaOption configures an Arena at construction time.
type ArenaOption interface {
	applyArena(*arenaConfig) error
}

type arenaOptionFunc func(*arenaConfig) error

func (f arenaOptionFunc) applyArena(c *arenaConfig) error { return f(c) }

// WithNodeCapacity sets the total number of node slots in the heap
// (Zone A plus Zone B). Must be greater than zero.
func WithNodeCapacity(capacity uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		if capacity == 0 {
			return newInvalidPointer("node capacity must be greater than zero")
		}
		c.nodeCapacity = capacity
		if !c.zoneSplitSet {
			c.zoneSplit = capacity / 2
		}
		return nil
	})
}

// WithZoneSplit sets the number of node slots, starting at index 0,
// that belong to the free-list-managed Zone A. The remainder belongs
// to the bump-allocated Zone B. Defaults to half of node capacity.
func WithZoneSplit(split uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.zoneSplit = split
		c.zoneSplitSet = true
		return nil
	})
}

// WithPPQ sets pulses-per-quarter-note.
func WithPPQ(ppq uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.ppq = ppq
		return nil
	})
}

// WithBPM sets the initial beats-per-minute; BPM is mutable live.
func WithBPM(bpm uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.bpm = bpm
		return nil
	})
}

// WithSafeZoneTicks sets the look-ahead window, in ticks, ahead of the
// playhead within which structural edits are forbidden.
func WithSafeZoneTicks(ticks uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.safeZoneTicks = ticks
		return nil
	})
}

// WithIdentityTableCapacity sets the identity/symbol table capacity.
// Must be a power of two; rounded up if not.
func WithIdentityTableCapacity(capacity uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		if capacity == 0 {
			return newInvalidPointer("identity table capacity must be greater than zero")
		}
		c.identityCapacity = nextPowerOfTwo(capacity)
		return nil
	})
}

// WithCommandRingCapacity sets the command ring's slot count. Must be
// a power of two; rounded up if not.
func WithCommandRingCapacity(capacity uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		if capacity == 0 {
			return newInvalidPointer("command ring capacity must be greater than zero")
		}
		c.commandRingCapacity = nextPowerOfTwo(capacity)
		return nil
	})
}

// WithSampleRate sets the audio sample rate used to convert ticks to
// samples. It may also be changed live via Arena.SetSampleRate.
func WithSampleRate(rate uint32) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.sampleRate = rate
		return nil
	})
}

// WithLogger makes NewArena call SetLogger with l, replacing the
// package-level logger used by every arena from then on; it is a
// convenience for callers that prefer configuring everything through
// options.
func WithLogger(l *Logger) ArenaOption {
	return arenaOptionFunc(func(c *arenaConfig) error {
		c.logger = l
		return nil
	})
}

func nextPowerOfTwo(v uint32) uint32 {
	if v == 0 {
		return 1
	}
	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v++
	return v
}

func defaultArenaConfig() arenaConfig {
	return arenaConfig{
		nodeCapacity:        defaultNodeCapacity,
		zoneSplit:           defaultNodeCapacity / 2,
		ppq:                 defaultPPQ,
		bpm:                 defaultBPM,
		safeZoneTicks:       defaultSafeZoneTicks,
		identityCapacity:    defaultIdentityCapacity,
		commandRingCapacity: defaultCommandRingCapacity,
		sampleRate:          defaultSampleRate,
	}
}
