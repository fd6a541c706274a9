package rpheap

import "errors"

// Sentinel errors returned by the public entry points. Grounded on
// hivekit's hive/alloc/errors.go convention of one var block of wrapped
// errors.New values rather than a package of typed error structs.
var (
	// ErrOverflow is returned by AllocZeroed when count*size overflows int.
	ErrOverflow = errors.New("rpheap: allocation size overflow")

	// ErrOutOfMemory is returned when the kernel refuses a mapping
	// request. Realloc returning this error leaves the original slice
	// valid and unfreed.
	ErrOutOfMemory = errors.New("rpheap: out of memory")

	// ErrCorrupt is never returned by any function; header corruption is
	// reported as a panic (see abortCorrupt), not an error value. The panic
	// value is an *ErrCorruptHeader that wraps ErrCorrupt, so
	// recover()-based tests can match it with errors.Is.
	ErrCorrupt = errors.New("rpheap: corrupt object header")
)
