package linker

// External interfaces consumed by the core. The Linker never implements
// these itself — synthesis, import, and sample-rate management live
// upstream — but the core is written against these contracts so a real
// audio backend or builder DSL can be wired in without touching this
// package.

// SampleRateSource supplies the audio subsystem's sample rate, read
// once per rendering quantum.
type SampleRateSource interface {
	SampleRate() uint32
}

// CommandProducer is any upstream builder that emits INSERT/DELETE/
// CLEAR commands onto a CommandRing. Its contract: write the node's
// fields before enqueueing, and never reference a node again after
// enqueueing a DELETE for it.
type CommandProducer interface {
	Produce(ring *CommandRing) error
}

// GrooveTemplateWriter populates a groove template and atomically
// publishes it via RegisterBank.PublishGroove.
type GrooveTemplateWriter interface {
	WriteGroove(registers *RegisterBank) error
}

// staticSampleRate is a trivial SampleRateSource for callers that don't
// need a live-changing rate (most CLI/demo usage).
type staticSampleRate uint32

func (s staticSampleRate) SampleRate() uint32 { return uint32(s) }

// StaticSampleRate returns a SampleRateSource that always reports rate.
func StaticSampleRate(rate uint32) SampleRateSource { return staticSampleRate(rate) }
