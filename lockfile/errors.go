package lockfile

import "errors"

var (
	// ErrLockTimeout indicates the lock could not be acquired within the
	// configured bound. The contending writer may retry with backoff or
	// proceed without caching.
	ErrLockTimeout = errors.New("lockfile: timed out waiting for lock")

	// ErrLockHeld indicates a non-blocking acquisition found the lock held
	// by another process.
	ErrLockHeld = errors.New("lockfile: lock held by another process")
)
