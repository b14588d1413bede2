package storage

import (
	"github.com/swpatterns/diskcache/digest"
)

// EntryStore persists checksummed cache entries addressed by digest.
// Implementations never mutate a stored entry in place; an entry is only
// replaced wholesale by a later write to the same digest.
type EntryStore interface {
	// ReadEntry returns the payload stored for digest.
	// Returns ErrNotFound if no entry exists and ErrCorruptEntry if an
	// entry exists but fails frame or checksum validation. Corrupt entries
	// are never deleted on read; a later write overwrites them.
	ReadEntry(dg []byte) ([]byte, error)

	// WriteEntry stores payload under digest, replacing any previous entry
	// atomically with respect to concurrent readers.
	WriteEntry(dg []byte, payload []byte) error

	// HasEntry reports whether an entry exists for digest, without reading
	// or validating its payload.
	HasEntry(dg []byte) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}

// validateDigest checks that the digest length is within the supported range.
func validateDigest(dg []byte) error {
	if len(dg) < digest.MinSize || len(dg) > digest.MaxSize {
		return ErrInvalidDigest
	}
	return nil
}
