package config

import "errors"

var (
	// ErrEmptyRoot indicates the cache root path is empty.
	ErrEmptyRoot = errors.New("config: cache root must not be empty")

	// ErrInvalidBackend indicates the backend name is not recognized.
	ErrInvalidBackend = errors.New("config: invalid backend (must be \"file\" or \"bolt\")")

	// ErrInvalidLockTimeout indicates the lock timeout is not positive.
	ErrInvalidLockTimeout = errors.New("config: lock timeout must be positive")

	// ErrInvalidDigestSize indicates the digest size is outside the supported range.
	ErrInvalidDigestSize = errors.New("config: digest size must be between 16 and 64 bytes")

	// ErrEnvParse indicates the environment could not be parsed into a configuration.
	ErrEnvParse = errors.New("config: parse environment")
)
