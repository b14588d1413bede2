package storage

import "errors"

var (
	// ErrNotFound indicates no entry exists for the given digest.
	ErrNotFound = errors.New("storage: entry not found")

	// ErrCorruptEntry indicates an entry exists but its frame is malformed
	// or its checksum does not match the payload.
	ErrCorruptEntry = errors.New("storage: corrupt entry")

	// ErrInvalidDigest indicates the digest length is outside the supported range.
	ErrInvalidDigest = errors.New("storage: invalid digest length")

	// ErrIOFailure indicates a filesystem read/write error.
	ErrIOFailure = errors.New("storage: I/O failure")

	// ErrInvalidBaseDir indicates the base directory path is invalid.
	ErrInvalidBaseDir = errors.New("storage: invalid base directory")

	// ErrBaseDirNotFound indicates a read-only base directory does not exist.
	ErrBaseDirNotFound = errors.New("storage: base directory not found")
)
