package digest

import "errors"

var (
	// ErrInvalidSize indicates the requested digest size is outside the
	// supported range.
	ErrInvalidSize = errors.New("digest: size must be between 16 and 64 bytes")
)
