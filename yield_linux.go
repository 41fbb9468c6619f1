//go:build linux

package linker

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// futexWait is the FUTEX_WAIT operation; golang.org/x/sys/unix does not
// export the futex op constants (only SYS_FUTEX, the syscall number),
// so the handful this package needs are declared locally.
const futexWait = 0

// zeroAllocYield parks the calling goroutine's underlying thread for up
// to 1ms via a raw futex wait on slot, falling back silently to a
// scheduler yield if the syscall is unsupported in this context (for
// example, inside certain sandboxes). It never allocates, matching the
// zero-allocation yield primitive's contract. It is never called from
// the audio thread.
func zeroAllocYield(slot *uint32) {
	ts := unix.Timespec{Sec: 0, Nsec: int64(1_000_000)} // 1ms
	val := *slot
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(slot)),
		uintptr(futexWait),
		uintptr(val),
		uintptr(unsafe.Pointer(&ts)),
		0, 0,
	)
	if errno == unix.ENOSYS {
		schedYield()
	}
}
