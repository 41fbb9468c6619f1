package linker

// cacheLineSize is the assumed line size used to pad hot atomic fields
// apart so independent writers (editor/worker/audio) never false-share
// a cache line. Matches the padding idiom used throughout eventloop's
// FastState and TaskArena.
const cacheLineSize = 64

// nodeSize is the fixed size, in bytes, of one node: 8 × 32-bit words.
const nodeSize = 32

// NullPtr is the reserved null node pointer; no valid node ever uses it.
const NullPtr NodePtr = 0

// headerWords / registerWords mirror the byte-layout diagram in the
// external-interfaces section: 32 header words followed by 32 register
// words before the node heap begins. They are not used to index a raw
// byte slice (this implementation uses typed atomic fields instead of a
// flat []byte, per the typed-accessor design note) but are kept as
// named constants so the documented layout stays traceable to the code.
const (
	headerWords   = 32
	registerWords = 32
)

// Default configuration values, matching the end-to-end scenarios.
const (
	defaultNodeCapacity        = 4096
	defaultPPQ                 = 480
	defaultBPM                 = 120
	defaultSafeZoneTicks       = 960
	defaultIdentityCapacity    = 1024
	defaultCommandRingCapacity = 1024
	defaultSampleRate          = 48000
)

// panicThreshold is the dead-man's-switch spin count for both the chain
// mutex and sync_ack before KernelPanic is raised.
const panicThreshold = 1_000_000

// yieldEverySpins is how often a spin loop (other than the audio thread)
// calls the zero-allocation yield primitive instead of busy-spinning.
const yieldEverySpins = 100

// Retry budgets for the versioned-read loop.
const (
	audioRetryBudget = 50
	coreRetryBudget  = 1000
)

// commandBatchSize bounds process_commands so a command flood cannot
// starve the audio thread indefinitely.
const commandBatchSize = 256

// identityLoadFactorWarning is the occupancy ratio above which
// LoadFactorWarning is raised (non-fatal).
const identityLoadFactorWarning = 0.75
