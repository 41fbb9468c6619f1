package linker

import "sync/atomic"

// CommitState is the 3-state commit handshake between a structural edit
// and the audio thread's cached traversal cursor.
type CommitState uint32

const (
	CommitIdle CommitState = iota
	CommitPending
	CommitAck
)

func (s CommitState) String() string {
	switch s {
	case CommitIdle:
		return "idle"
	case CommitPending:
		return "pending"
	case CommitAck:
		return "ack"
	default:
		return "unknown"
	}
}

// commitState is a cache-line-padded atomic holder for CommitState,
// following the same padding idiom as eventloop's FastState so the
// editor, worker, and audio thread never false-share the word with
// neighboring hot fields.
type commitState struct {
	_     [cacheLineSize]byte
	value atomic.Uint32
	_     [cacheLineSize]byte
}

func (c *commitState) Load() CommitState {
	return CommitState(c.value.Load())
}

func (c *commitState) Store(s CommitState) {
	c.value.Store(uint32(s))
}

// TryTransition performs a pure CAS from one commit state to another,
// returning whether the transition was applied.
func (c *commitState) TryTransition(from, to CommitState) bool {
	return c.value.CompareAndSwap(uint32(from), uint32(to))
}
