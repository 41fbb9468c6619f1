package linker

// Chain mutex: a single CAS word protecting only chain topology
// (PREV/NEXT and HEAD_PTR). Acquisition spins, calling the zero-alloc
// yield primitive every 100 failed spins; after panicThreshold total
// spins the arena is poisoned with KernelPanic on the assumption that
// the holder has crashed and the arena is unrecoverable without a
// restart. Release is always a plain store of 0; each call site calls
// unlockChain explicitly on every return path taken after acquiring.

func (a *Arena) lockChain() error {
	spins := uint64(0)
	for {
		if a.chainMutex.CompareAndSwap(0, 1) {
			return nil
		}
		spins++
		if spins >= panicThreshold {
			a.poisoned.Store(true)
			a.setErrorFlag(ErrorKernelPanic)
			a.metrics.kernelPanics.Add(1)
			logKernelPanic("chain_mutex", spins)
			return ErrKernelPanic
		}
		if spins%yieldEverySpins == 0 {
			zeroAllocYield(&a.yieldSlot)
		}
	}
}

func (a *Arena) unlockChain() {
	a.chainMutex.Store(0)
}

// SyncAck is the editor-side half of the commit protocol: it spins on
// COMMIT_FLAG until it observes IDLE, consuming an ACK (transitioning
// it to IDLE) the moment one appears. It shares the chain mutex's
// dead-man's-switch threshold and yield cadence.
func (a *Arena) SyncAck() error {
	if err := a.checkPoisoned(); err != nil {
		return err
	}
	spins := uint64(0)
	for {
		switch a.commit.Load() {
		case CommitIdle:
			return nil
		case CommitAck:
			if a.commit.TryTransition(CommitAck, CommitIdle) {
				return nil
			}
		}
		spins++
		if spins >= panicThreshold {
			a.poisoned.Store(true)
			a.setErrorFlag(ErrorKernelPanic)
			a.metrics.kernelPanics.Add(1)
			logKernelPanic("sync_ack", spins)
			return ErrKernelPanic
		}
		if spins%yieldEverySpins == 0 {
			zeroAllocYield(&a.yieldSlot)
		}
	}
}
