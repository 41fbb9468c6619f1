package linker

import "runtime"

// schedYield is the scheduler-yield fallback shared by both the Linux
// futex-based and the generic implementations of zeroAllocYield.
func schedYield() {
	runtime.Gosched()
}
