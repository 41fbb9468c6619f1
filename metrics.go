package linker

import "sync/atomic"

// Metrics holds lightweight atomic counters tracking the error
// conditions and contention events documented in SPEC_FULL.md,
// grounded on the counter fields of eventloop's Metrics/LatencyMetrics
// (simplified here to plain counters and a running min/max/mean for
// commit round-trip latency, rather than a full P-Square quantile
// estimator, since the Linker's commit handshake is not a
// high-cardinality latency surface the way eventloop's task queue is;
// see DESIGN.md for the full justification).
type Metrics struct {
	heapExhausted        atomic.Uint64
	safeZoneViolations    atomic.Uint64
	contentionSkips       atomic.Uint64
	commandQueueOverflows atomic.Uint64
	loadFactorWarnings    atomic.Uint64
	kernelPanics          atomic.Uint64

	commitLatency latencySampler
}

func newMetrics() *Metrics {
	return &Metrics{}
}

// HeapExhausted returns the count of HeapExhausted errors observed.
func (m *Metrics) HeapExhausted() uint64 { return m.heapExhausted.Load() }

// SafeZoneViolations returns the count of SafeZoneViolation errors observed.
func (m *Metrics) SafeZoneViolations() uint64 { return m.safeZoneViolations.Load() }

// ContentionSkips returns the count of audio-thread versioned reads
// that exhausted their retry budget and skipped a node.
func (m *Metrics) ContentionSkips() uint64 { return m.contentionSkips.Load() }

// CommandQueueOverflows returns the count of command ring overflow
// errors observed.
func (m *Metrics) CommandQueueOverflows() uint64 { return m.commandQueueOverflows.Load() }

// LoadFactorWarnings returns the count of identity table load-factor
// warnings raised.
func (m *Metrics) LoadFactorWarnings() uint64 { return m.loadFactorWarnings.Load() }

// KernelPanics returns the count of dead-man's-switch trips.
func (m *Metrics) KernelPanics() uint64 { return m.kernelPanics.Load() }

// FlushContention reports the accumulated contention-skip count to the
// structured logger and returns it. Intended to be called periodically
// by the worker, never synchronously from the audio thread.
func (m *Metrics) FlushContention() uint64 {
	count := m.contentionSkips.Swap(0)
	logContentionFlush(count)
	return count
}

// latencySampler is a minimal running min/max/count/sum accumulator for
// commit round-trip durations, in nanoseconds.
type latencySampler struct {
	count atomic.Uint64
	sum   atomic.Uint64
	min   atomic.Uint64
	max   atomic.Uint64
}

func (s *latencySampler) record(nanos uint64) {
	s.count.Add(1)
	s.sum.Add(nanos)
	for {
		cur := s.min.Load()
		if cur != 0 && cur <= nanos {
			break
		}
		if s.min.CompareAndSwap(cur, nanos) {
			break
		}
	}
	for {
		cur := s.max.Load()
		if cur >= nanos {
			break
		}
		if s.max.CompareAndSwap(cur, nanos) {
			break
		}
	}
}

// CommitLatency returns the commit round-trip latency distribution
// observed so far: count, mean (nanoseconds), min, and max.
func (m *Metrics) CommitLatency() (count uint64, meanNanos float64, minNanos uint64, maxNanos uint64) {
	count = m.commitLatency.count.Load()
	if count == 0 {
		return 0, 0, 0, 0
	}
	sum := m.commitLatency.sum.Load()
	return count, float64(sum) / float64(count), m.commitLatency.min.Load(), m.commitLatency.max.Load()
}

// RecordCommitLatency records one observed commit round-trip duration.
func (m *Metrics) RecordCommitLatency(nanos uint64) {
	m.commitLatency.record(nanos)
}
