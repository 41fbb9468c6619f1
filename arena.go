package linker

import (
	"sync/atomic"
	"time"
)

// NodePtr is a byte offset into the node heap; NullPtr (0) is the only
// invalid value and is never assigned to a real node.
type NodePtr uint32

// EventOpcode is the type of musical event a node represents, packed
// into the top byte of PACKED_A.
type EventOpcode uint8

const (
	OpcodeNote EventOpcode = 0x01
	OpcodeRest EventOpcode = 0x02
	OpcodeCC   EventOpcode = 0x03
	OpcodeBend EventOpcode = 0x04
)

// Node flag bits, packed into the low byte of PACKED_A.
const (
	FlagActive uint8 = 0x01
	FlagMuted  uint8 = 0x02
	FlagDirty  uint8 = 0x04
)

// Node is one 32-byte (8 × 32-bit word) record in the node heap. Every
// field is an atomic.Uint32 so a Node is exactly 32 bytes (atomic.Uint32
// itself is a 4-byte word plus a zero-sized no-copy guard), satisfying
// the node layout's size requirement without an unsafe byte-cast.
type Node struct {
	packedA  atomic.Uint32 // opcode(8) | pitch(8) | velocity(8) | flags(8)
	baseTick atomic.Uint32
	duration atomic.Uint32
	next     atomic.Uint32 // NodePtr, or 0
	prev     atomic.Uint32 // NodePtr, or 0
	sourceID atomic.Uint32
	seqFlags atomic.Uint32 // sequence(24) | reserved(8)
	reserved atomic.Uint32 // pad to 8 words; unused
}

func packA(opcode EventOpcode, pitch, velocity, flags uint8) uint32 {
	return uint32(opcode)<<24 | uint32(pitch)<<16 | uint32(velocity)<<8 | uint32(flags)
}

func unpackA(v uint32) (opcode EventOpcode, pitch, velocity, flags uint8) {
	return EventOpcode(v >> 24), uint8(v >> 16), uint8(v >> 8), uint8(v)
}

// ptrForIndex converts a zero-based node-heap index to its NodePtr byte
// offset; index -1 (no valid node) is never passed in.
func ptrForIndex(index uint32) NodePtr {
	return NodePtr((index + 1) * nodeSize)
}

// indexForPtr is the inverse of ptrForIndex; callers must validate the
// pointer first via Arena.validatePtr.
func indexForPtr(ptr NodePtr) uint32 {
	return uint32(ptr)/nodeSize - 1
}

// NodeSnapshot is a point-in-time, torn-read-free view of one node,
// produced by the versioned-read loop.
type NodeSnapshot struct {
	Opcode   EventOpcode
	Pitch    uint8
	Velocity uint8
	Flags    uint8
	BaseTick uint32
	Duration uint32
	Next     NodePtr
	Prev     NodePtr
	SourceID uint32
	Seq      uint32
}

func (s NodeSnapshot) Active() bool { return s.Flags&FlagActive != 0 }
func (s NodeSnapshot) Muted() bool  { return s.Flags&FlagMuted != 0 }

// Arena is the single shared node heap plus the header fields, register
// bank, identity/symbol tables, groove templates, and command ring that
// together make up the Silicon Linker. It is safe for concurrent use by
// the editor, worker, and audio roles exactly as described in the
// package documentation; no other usage pattern is supported.
type Arena struct {
	_ [cacheLineSize]byte

	ppq           atomic.Uint32
	bpm           atomic.Uint32
	headPtr       atomic.Uint32
	freeListPtr   atomic.Uint32
	playheadTick  atomic.Uint32
	safeZoneTicks atomic.Uint32
	errorFlag     atomic.Uint32
	nodeCount     atomic.Uint32
	freeCount     atomic.Uint32
	sampleRate    atomic.Uint32
	poisoned      atomic.Bool

	_ [cacheLineSize]byte

	commit          commitState
	commitPendingAt atomic.Int64 // UnixNano at the last CommitPending transition

	_ [cacheLineSize]byte

	chainMutex atomic.Uint32
	yieldSlot  uint32

	_ [cacheLineSize]byte

	nodeCapacity uint32
	zoneSplit    uint32
	nodes        []Node

	// bumpNext is the Zone B bump cursor. It is touched only by the
	// editor role (single writer, per the concurrency model), so it is
	// a plain field rather than an atomic one.
	bumpNext uint32

	ring *CommandRing

	identity *IdentityTable

	registers RegisterBank

	metrics *Metrics
}

// NewArena builds an Arena from the supplied options, falling back to
// the defaults used throughout SPEC_FULL.md's end-to-end scenarios
// (4096 nodes, PPQ 480, BPM 120, safe zone 960) for anything unset.
func NewArena(opts ...ArenaOption) (*Arena, error) {
	cfg := defaultArenaConfig()
	for _, o := range opts {
		if err := o.applyArena(&cfg); err != nil {
			return nil, err
		}
	}
	if cfg.zoneSplit > cfg.nodeCapacity {
		return nil, newInvalidPointer("zone split exceeds node capacity")
	}
	if cfg.logger != nil {
		SetLogger(cfg.logger)
	}

	a := &Arena{
		nodeCapacity: cfg.nodeCapacity,
		zoneSplit:    cfg.zoneSplit,
		nodes:        make([]Node, cfg.nodeCapacity),
		metrics:      newMetrics(),
	}
	a.ppq.Store(cfg.ppq)
	a.bpm.Store(cfg.bpm)
	a.safeZoneTicks.Store(cfg.safeZoneTicks)
	a.sampleRate.Store(cfg.sampleRate)
	a.registers.velocityMultPPT.Store(1000)

	a.initializeFreeList()
	a.ring = newCommandRing(cfg.commandRingCapacity)
	a.identity = newIdentityTable(cfg.identityCapacity, a)

	return a, nil
}

func (a *Arena) node(ptr NodePtr) *Node {
	return &a.nodes[indexForPtr(ptr)]
}

func (a *Arena) validatePtr(ptr NodePtr) error {
	if ptr == NullPtr {
		return ErrInvalidPointer
	}
	if uint32(ptr)%nodeSize != 0 {
		return newInvalidPointer("pointer is not node-aligned")
	}
	idx := uint32(ptr) / nodeSize
	if idx < 1 || idx > a.nodeCapacity {
		return newInvalidPointer("pointer is out of range")
	}
	return nil
}

// Poisoned reports whether the arena suffered a kernel panic (a tripped
// dead-man's switch). Once poisoned, every subsequent structural edit,
// attribute patch, command submission, ProcessCommands call, and SyncAck
// fails fast with ErrArenaPoisoned; read paths (ReadNode, Traverse,
// RenderQuantum, identity lookups) do not check the flag. The only
// recovery is constructing a new Arena.
func (a *Arena) Poisoned() bool { return a.poisoned.Load() }

func (a *Arena) checkPoisoned() error {
	if a.poisoned.Load() {
		return ErrArenaPoisoned
	}
	return nil
}

// ErrorFlag returns the most recently recorded ErrorKind, mirroring the
// arena's ERROR_FLAG header word.
func (a *Arena) ErrorFlag() ErrorKind { return ErrorKind(a.errorFlag.Load()) }

func (a *Arena) setErrorFlag(k ErrorKind) { a.errorFlag.Store(uint32(k)) }

// NodeCount returns NODE_COUNT: Zone A nodes taken from the free list
// (counted from allocation, before they are linked) plus Zone B nodes
// linked by the worker.
func (a *Arena) NodeCount() uint32 { return a.nodeCount.Load() }

// FreeCount returns the number of free Zone A slots.
func (a *Arena) FreeCount() uint32 { return a.freeCount.Load() }

// NodeCapacity returns the total number of node slots in the heap.
func (a *Arena) NodeCapacity() uint32 { return a.nodeCapacity }

// HeadPtr returns the first node of the chain, or NullPtr if empty.
func (a *Arena) HeadPtr() NodePtr { return NodePtr(a.headPtr.Load()) }

// PlayheadTick returns the audio thread's current position in ticks.
func (a *Arena) PlayheadTick() uint32 { return a.playheadTick.Load() }

// SafeZoneTicks returns the configured safe-zone look-ahead window.
func (a *Arena) SafeZoneTicks() uint32 { return a.safeZoneTicks.Load() }

// SetSafeZoneTicks changes the safe-zone window live.
func (a *Arena) SetSafeZoneTicks(ticks uint32) { a.safeZoneTicks.Store(ticks) }

// SetBPM changes beats-per-minute live.
func (a *Arena) SetBPM(bpm uint32) { a.bpm.Store(bpm) }

// BPM returns the current beats-per-minute.
func (a *Arena) BPM() uint32 { return a.bpm.Load() }

// PPQ returns pulses-per-quarter-note.
func (a *Arena) PPQ() uint32 { return a.ppq.Load() }

// SetSampleRate changes the sample rate used for tick/sample conversion.
// Implements the SampleRateSource collaborator contract for callers
// that supply their own audio subsystem.
func (a *Arena) SetSampleRate(rate uint32) { a.sampleRate.Store(rate) }

// SampleRate returns the current sample rate.
func (a *Arena) SampleRate() uint32 { return a.sampleRate.Load() }

// Metrics returns the arena's metrics counters.
func (a *Arena) Metrics() *Metrics { return a.metrics }

// Identity returns the arena's identity and symbol table.
func (a *Arena) Identity() *IdentityTable { return a.identity }

// Registers returns the arena's register bank.
func (a *Arena) Registers() *RegisterBank { return &a.registers }

// markCommitPending raises COMMIT_FLAG to Pending and stamps the time
// of the transition, so the audio thread can later compute the commit
// round-trip latency when it observes and acknowledges it.
func (a *Arena) markCommitPending() {
	a.commitPendingAt.Store(time.Now().UnixNano())
	a.commit.Store(CommitPending)
}

func (a *Arena) checkSafeZone(tick uint32) error {
	playhead := a.playheadTick.Load()
	safeZone := a.safeZoneTicks.Load()
	if tick >= playhead && tick-playhead < safeZone {
		a.setErrorFlag(ErrorSafeZoneViolation)
		logSafeZoneViolation(tick, playhead, safeZone)
		a.metrics.safeZoneViolations.Add(1)
		return ErrSafeZoneViolation
	}
	return nil
}
