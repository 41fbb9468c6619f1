package linker

// Linker Core: insert/delete/traverse/commit protocol, and the glue
// between the two allocation paths the arena supports:
//
//   - a direct, synchronous API (InsertAfter/InsertHead/Delete) that
//     allocates from Zone A, splices under the chain mutex, and frees
//     back to Zone A on a safe-zone violation or on delete — convenient
//     for tests and single-threaded callers;
//   - the asynchronous command-ring pipeline (SubmitInsertCommand /
//     SubmitDeleteCommand / SubmitClearCommand, drained by
//     ProcessCommands) matching the editor/worker data flow in §2: the
//     editor bump-allocates from Zone B, writes fields, and enqueues a
//     command; the worker dequeues it and performs only the splice (the
//     node already exists, so a safe-zone violation here cannot free it
//     back to a zone it was never part of — Zone B has no reclamation,
//     so the node is simply abandoned and the violation is logged and
//     counted).
//
// Both paths share the splice/unlink helpers below so chain topology
// logic exists exactly once.
type Linker struct {
	arena *Arena

	// cursor is the audio thread's cached traversal position. It is
	// owned exclusively by the audio role; see audio.go.
	cursor NodePtr
}

// NewLinker wraps an Arena with the high-level Linker Core operations.
func NewLinker(arena *Arena) *Linker {
	return &Linker{arena: arena}
}

// Arena returns the underlying Arena.
func (l *Linker) Arena() *Arena { return l.arena }

// NodeFields are the caller-supplied fields for a new node. ACTIVE is
// always forced on by the write protocol regardless of Flags.
//
// FileHash and LineCol carry the symbol-table location (§4.7) recorded
// alongside the identity mapping; they are only stored when SourceID is
// non-zero. SourceID 0 opts a node out of identity/symbol tracking
// entirely (it is never published to the IdentityTable).
type NodeFields struct {
	Opcode   EventOpcode
	Pitch    uint8
	Velocity uint8
	Flags    uint8
	BaseTick uint32
	Duration uint32
	SourceID uint32
	FileHash uint32
	LineCol  uint32
}

func writeNodeFields(n *Node, f NodeFields) {
	n.packedA.Store(packA(f.Opcode, f.Pitch, f.Velocity, f.Flags|FlagActive))
	n.baseTick.Store(f.BaseTick)
	n.duration.Store(f.Duration)
	n.sourceID.Store(f.SourceID)
}

func spliceAfter(arena *Arena, afterPtr, newPtr NodePtr) {
	afterNode := arena.node(afterPtr)
	newNode := arena.node(newPtr)
	b := NodePtr(afterNode.next.Load())
	newNode.prev.Store(uint32(afterPtr))
	newNode.next.Store(uint32(b))
	if b != NullPtr {
		arena.node(b).prev.Store(uint32(newPtr))
	}
	afterNode.next.Store(uint32(newPtr)) // release: publishes the new node last
}

func spliceHead(arena *Arena, newPtr NodePtr) {
	newNode := arena.node(newPtr)
	head := NodePtr(arena.headPtr.Load())
	newNode.prev.Store(0)
	newNode.next.Store(uint32(head))
	if head != NullPtr {
		arena.node(head).prev.Store(uint32(newPtr))
	}
	arena.headPtr.Store(uint32(newPtr)) // release: publishes the new head last
}

// publishIdentity records the identity/symbol mapping for a newly
// spliced node, per §2's worker contract ("splices the node into the
// doubly-linked list, updates the identity table, and raises a commit
// flag"). A SourceID of 0 opts the node out of identity tracking. A
// full identity table is logged and otherwise ignored: it does not fail
// the structural edit that is already committed to the chain.
func publishIdentity(arena *Arena, ptr NodePtr, fields NodeFields) {
	if fields.SourceID == 0 {
		return
	}
	if err := arena.identity.InsertWithSymbol(fields.SourceID, ptr, fields.FileHash, fields.LineCol); err != nil {
		logIdentityUpdateFailed(fields.SourceID, err)
	}
}

// retractIdentity removes the identity/symbol mapping for a node about
// to be unlinked, so Lookup never returns a pointer to a freed (and
// potentially reused) slot.
func retractIdentity(arena *Arena, ptr NodePtr) {
	sourceID := arena.node(ptr).sourceID.Load()
	if sourceID == 0 {
		return
	}
	arena.identity.Remove(sourceID)
}

func unlink(arena *Arena, ptr NodePtr) (prev, next NodePtr) {
	n := arena.node(ptr)
	prev = NodePtr(n.prev.Load())
	next = NodePtr(n.next.Load())
	if prev != NullPtr {
		arena.node(prev).next.Store(uint32(next))
	} else {
		arena.headPtr.Store(uint32(next))
	}
	if next != NullPtr {
		arena.node(next).prev.Store(uint32(prev))
	}
	return prev, next
}

// InsertAfter allocates a node from Zone A, writes fields, and splices
// it in after afterPtr, following §4.6's insert_after exactly: allocate
// → write fields → acquire chain mutex → re-check the safe zone against
// after's BASE_TICK (the playhead may have advanced while waiting for
// the mutex) → splice → raise COMMIT_FLAG → release. On a safe-zone
// violation the newly-allocated node is returned to the free list and
// NODE_COUNT is left unchanged.
func (l *Linker) InsertAfter(afterPtr NodePtr, fields NodeFields) (NodePtr, error) {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return NullPtr, err
	}
	if err := a.validatePtr(afterPtr); err != nil {
		return NullPtr, err
	}
	newPtr, err := a.allocFree()
	if err != nil {
		return NullPtr, err
	}
	writeNodeFields(a.node(newPtr), fields)

	if err := a.lockChain(); err != nil {
		return NullPtr, err
	}
	afterBaseTick := a.node(afterPtr).baseTick.Load()
	if err := a.checkSafeZone(afterBaseTick); err != nil {
		a.unlockChain()
		a.freeNode(newPtr)
		return NullPtr, err
	}
	spliceAfter(a, afterPtr, newPtr)
	publishIdentity(a, newPtr, fields)
	a.markCommitPending()
	a.unlockChain()
	return newPtr, nil
}

// InsertHead allocates a node from Zone A, writes fields, and splices
// it in as the new head of the chain. The safe zone is re-checked
// against the new node's own BASE_TICK, since there is no preceding
// node to check against.
func (l *Linker) InsertHead(fields NodeFields) (NodePtr, error) {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return NullPtr, err
	}
	newPtr, err := a.allocFree()
	if err != nil {
		return NullPtr, err
	}
	writeNodeFields(a.node(newPtr), fields)

	if err := a.lockChain(); err != nil {
		return NullPtr, err
	}
	if err := a.checkSafeZone(fields.BaseTick); err != nil {
		a.unlockChain()
		a.freeNode(newPtr)
		return NullPtr, err
	}
	spliceHead(a, newPtr)
	publishIdentity(a, newPtr, fields)
	a.markCommitPending()
	a.unlockChain()
	return newPtr, nil
}

// Delete unlinks ptr from the chain and frees it back to Zone A (or
// abandons it, if it was a Zone B node — see freeNode). Deleting the
// head uses the mutex's exclusivity directly; no CAS loop is needed
// inside the lock.
func (l *Linker) Delete(ptr NodePtr) error {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.validatePtr(ptr); err != nil {
		return err
	}
	if err := a.lockChain(); err != nil {
		return err
	}
	baseTick := a.node(ptr).baseTick.Load()
	if err := a.checkSafeZone(baseTick); err != nil {
		a.unlockChain()
		return err
	}
	unlink(a, ptr)
	retractIdentity(a, ptr)
	a.markCommitPending()
	a.unlockChain()
	a.freeNode(ptr)
	return nil
}

// Traverse walks the chain from HEAD_PTR, running the versioned-read
// loop at each node, decoding its packed attributes, and invoking fn
// with the node's pointer and snapshot. fn returns false to stop early.
// Advancement uses the next pointer captured inside each node's
// consistent snapshot, per the traverse contract.
func (l *Linker) Traverse(fn func(ptr NodePtr, snap NodeSnapshot) bool) error {
	cur := l.arena.HeadPtr()
	for cur != NullPtr {
		snap, err := l.arena.ReadNode(cur)
		if err != nil {
			return err
		}
		if !fn(cur, snap) {
			return nil
		}
		cur = snap.Next
	}
	return nil
}

// SubmitInsertCommand is the editor-side half of the ring pipeline: it
// bump-allocates a node from Zone B, writes its fields, and enqueues an
// INSERT command. If the ring is full, the node is left floating in
// Zone B (abandoned; Zone B has no reclamation) and the overflow error
// is returned to the caller.
func (l *Linker) SubmitInsertCommand(fields NodeFields, afterPtr NodePtr) (NodePtr, error) {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return NullPtr, err
	}
	ptr, err := a.AllocBump()
	if err != nil {
		return NullPtr, err
	}
	writeNodeFields(a.node(ptr), fields)
	cmd := Command{
		Opcode:   CommandInsert,
		Param1:   uint32(ptr),
		Param2:   uint32(afterPtr),
		FileHash: fields.FileHash,
		LineCol:  fields.LineCol,
	}
	if err := a.ring.Push(cmd); err != nil {
		a.metrics.commandQueueOverflows.Add(1)
		return NullPtr, err
	}
	return ptr, nil
}

// SubmitDeleteCommand enqueues a DELETE command for ptr.
func (l *Linker) SubmitDeleteCommand(ptr NodePtr) error {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.ring.Push(Command{Opcode: CommandDelete, Param1: uint32(ptr)}); err != nil {
		a.metrics.commandQueueOverflows.Add(1)
		return err
	}
	return nil
}

// SubmitClearCommand enqueues a CLEAR command.
func (l *Linker) SubmitClearCommand() error {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	if err := a.ring.Push(Command{Opcode: CommandClear}); err != nil {
		a.metrics.commandQueueOverflows.Add(1)
		return err
	}
	return nil
}

// ProcessCommands drains the command ring up to commandBatchSize
// commands, dispatching each to its handler. Unknown opcodes (including
// the reserved PATCH opcode) are logged and skipped rather than
// executed, per the documented PATCH-opcode decision.
func (l *Linker) ProcessCommands() (int, error) {
	a := l.arena
	if err := a.checkPoisoned(); err != nil {
		return 0, err
	}
	processed := 0
	for processed < commandBatchSize {
		cmd, ok := a.ring.Pop()
		if !ok {
			break
		}
		switch cmd.Opcode {
		case CommandInsert:
			_ = l.executeInsertFromRing(NodePtr(cmd.Param1), NodePtr(cmd.Param2), cmd.FileHash, cmd.LineCol)
		case CommandDelete:
			_ = l.Delete(NodePtr(cmd.Param1))
		case CommandClear:
			l.executeClear()
		default:
			logUnknownOpcode(uint32(cmd.Opcode))
		}
		processed++
	}
	// Reporting contention periodically from the worker, never from the
	// audio thread itself, per logContentionFlush's contract.
	a.metrics.FlushContention()
	return processed, nil
}

// executeInsertFromRing splices a node already allocated (via Zone B)
// and field-populated by the editor. Unlike InsertAfter, a safe-zone
// violation here cannot free the node back to Zone A: the node belongs
// to Zone B, which has no reclamation, so it is simply abandoned and
// the violation is logged and counted.
func (l *Linker) executeInsertFromRing(newPtr, afterPtr NodePtr, fileHash, lineCol uint32) error {
	a := l.arena
	if err := a.lockChain(); err != nil {
		return err
	}
	var baseTick uint32
	if afterPtr == NullPtr {
		baseTick = a.node(newPtr).baseTick.Load()
	} else {
		baseTick = a.node(afterPtr).baseTick.Load()
	}
	if err := a.checkSafeZone(baseTick); err != nil {
		a.unlockChain()
		return err
	}
	if afterPtr == NullPtr {
		spliceHead(a, newPtr)
	} else {
		spliceAfter(a, afterPtr, newPtr)
	}
	a.nodeCount.Add(1)
	if sourceID := a.node(newPtr).sourceID.Load(); sourceID != 0 {
		if err := a.identity.InsertWithSymbol(sourceID, newPtr, fileHash, lineCol); err != nil {
			logIdentityUpdateFailed(sourceID, err)
		}
	}
	a.markCommitPending()
	a.unlockChain()
	return nil
}

// executeClear unlinks and frees every node in the chain, resets
// HEAD_PTR, and clears the identity table.
func (l *Linker) executeClear() {
	a := l.arena
	if err := a.lockChain(); err != nil {
		return
	}
	cur := NodePtr(a.headPtr.Load())
	var freed []NodePtr
	for cur != NullPtr {
		next := NodePtr(a.node(cur).next.Load())
		freed = append(freed, cur)
		cur = next
	}
	a.headPtr.Store(0)
	a.markCommitPending()
	a.unlockChain()
	for _, ptr := range freed {
		a.freeNode(ptr)
	}
	a.identity.Clear()
}
