package refbox

// Allocator hands out raw byte regions addressed by uint32 offsets.
// Address 0 is never returned by a successful Alloc.
type Allocator interface {
	// Alloc reserves size bytes aligned to align. It either succeeds
	// completely or returns an error and leaves no allocation behind.
	Alloc(size, align uint32) (uint32, error)

	// Free releases a region previously returned by Alloc.
	Free(ptr, size, align uint32)

	// View returns the bytes of a live region. The slice aliases the
	// allocator's storage and may be invalidated by a later Alloc on
	// allocators whose backing memory grows.
	View(ptr, size uint32) ([]byte, error)
}

// Stats is a point-in-time snapshot of allocator usage.
type Stats struct {
	Allocs    uint64 // successful Alloc calls
	Frees     uint64 // Free calls that released a region
	Failures  uint64 // Alloc calls that returned an error
	Live      int    // regions currently allocated
	LiveBytes uint64 // bytes currently allocated
}

// StatsReporter is implemented by allocators that track their usage.
type StatsReporter interface {
	Stats() Stats
}
