//go:build !linux

package linker

// zeroAllocYield falls back to a scheduler yield on platforms without a
// futex syscall wrapper in golang.org/x/sys/unix. slot is unused here;
// it only matters to the Linux futex-based implementation.
func zeroAllocYield(slot *uint32) {
	schedYield()
}
