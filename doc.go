// Package linker implements the Silicon Linker: the memory-management and
// synchronization core of a live-coding music runtime.
//
// # Architecture
//
// An [Arena] is a single, fixed-capacity node heap shared between three
// roles that run as separate goroutines:
//
//   - editor: allocates nodes from the Zone B bump allocator, writes their
//     fields, and enqueues structural commands on the [CommandRing].
//   - worker: drains the command ring, holds the chain mutex while
//     splicing the doubly-linked chain, and maintains the identity and
//     symbol tables.
//   - audio: walks the chain using versioned reads (see [Arena.readNodeForAudio])
//     on every rendering quantum, never blocking, allocating, or taking a
//     lock.
//
// Nodes are addressed by [NodePtr], a 32-bit offset into the node heap
// (0 is null), exactly as described by the arena byte layout. Attribute
// mutations ([Arena.PatchPitch] and friends) bypass the chain mutex
// entirely and are made visible to the audio thread through a per-node
// sequence counter, never through the 3-state commit handshake
// ([CommitIdle], [CommitPending], [CommitAck]), which exists solely to
// invalidate the audio thread's cached traversal cursor after a
// structural edit.
//
// Multiple arenas may coexist; there is no hidden package-level
// singleton — every operation takes an explicit [*Arena] or [*Linker].
package linker
