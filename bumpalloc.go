package linker

// Zone B local allocator: a contention-free bump pointer for the editor
// thread, advancing through [zoneSplit, nodeCapacity). No atomics, no
// reclamation — exhaustion fails loudly, and a reset is only valid once
// the arena is quiesced (no in-flight commands reference Zone B nodes).

// AllocBump allocates the next node slot from Zone B. It must only be
// called from the editor role; the bump cursor is a plain field with no
// synchronization, by design, since Zone B has exactly one writer.
func (a *Arena) AllocBump() (NodePtr, error) {
	if a.bumpNext >= a.nodeCapacity-a.zoneSplit {
		a.setErrorFlag(ErrorHeapExhausted)
		logHeapExhausted("zone_b")
		a.metrics.heapExhausted.Add(1)
		return NullPtr, ErrHeapExhausted
	}
	idx := a.zoneSplit + a.bumpNext
	a.bumpNext++
	node := &a.nodes[idx]
	node.packedA.Store(0)
	node.baseTick.Store(0)
	node.duration.Store(0)
	node.next.Store(0)
	node.prev.Store(0)
	node.sourceID.Store(0)
	return ptrForIndex(idx), nil
}

// ResetBump rewinds the Zone B bump cursor to the start of its range.
// Callers must guarantee the arena is quiesced first: no editor,
// worker, or audio operation may be in flight, and no live chain node
// may reference a Zone B slot, or this will silently resurrect stale
// nodes.
func (a *Arena) ResetBump() {
	a.bumpNext = 0
}

// BumpUsed returns the number of Zone B slots allocated so far.
func (a *Arena) BumpUsed() uint32 { return a.bumpNext }
