package keyenc

import "errors"

var (
	// ErrUnsupportedKeyType indicates the key contains a value outside the
	// permitted primitive/container set.
	ErrUnsupportedKeyType = errors.New("keyenc: unsupported key type")

	// ErrCircularKey indicates the key structure references itself.
	ErrCircularKey = errors.New("keyenc: circular key structure")
)
