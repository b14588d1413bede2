package cache

import (
	"github.com/swpatterns/diskcache/keyenc"
	"github.com/swpatterns/diskcache/lockfile"
	"github.com/swpatterns/diskcache/storage"
)

// Aliases for the sentinel errors callers are expected to branch on, so most
// code only imports this package.
var (
	// ErrNotFound indicates no value is cached for the key and version.
	ErrNotFound = storage.ErrNotFound

	// ErrUnsupportedKeyType indicates the key contains a value the encoder
	// does not support. A caller defect, surfaced immediately.
	ErrUnsupportedKeyType = keyenc.ErrUnsupportedKeyType

	// ErrLockTimeout indicates a Put could not acquire the per-digest write
	// lock within the configured bound. Transient; the caller may retry or
	// proceed without caching.
	ErrLockTimeout = lockfile.ErrLockTimeout
)
