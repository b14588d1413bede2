// Package digest derives fixed-length content digests from encoded cache
// keys and caller version tags.
package digest

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	// MinSize is the smallest supported digest length (128 bits).
	MinSize = 16

	// MaxSize is the largest supported digest length (BLAKE2b maximum).
	MaxSize = blake2b.Size

	// DefaultSize is the digest length used when no size is configured.
	DefaultSize = blake2b.Size256
)

// Sum computes the digest identifying a cache entry: an unkeyed BLAKE2b hash
// of the version tag followed by the encoded key. The version is prefixed
// with its uvarint length so distinct (version, key) pairs can never collide
// by shifting bytes across the boundary. BLAKE2b carries no per-process
// seed, so identical inputs hash identically across processes and restarts.
func Sum(version string, encoded []byte, size int) ([]byte, error) {
	if size < MinSize || size > MaxSize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidSize, size)
	}
	h, err := blake2b.New(size, nil)
	if err != nil {
		return nil, fmt.Errorf("digest: init hash: %w", err)
	}

	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(version)))
	h.Write(lenBuf[:n])
	h.Write([]byte(version))
	h.Write(encoded)
	return h.Sum(nil), nil
}
