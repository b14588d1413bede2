// Package config holds the cache configuration: root location, storage
// backend, lock timeout, digest length, and optional read-only secondary
// roots. Configuration comes from the caller directly or from the
// DISKCACHE_* environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/swpatterns/diskcache/digest"
	"github.com/swpatterns/diskcache/lockfile"
)

// Backend names accepted by Config.Backend.
const (
	BackendFile = "file"
	BackendBolt = "bolt"
)

// Config describes a cache instance. The zero value is not usable; start
// from DefaultConfig or FromEnv.
type Config struct {
	// Root is the cache root directory, created if absent. For the bolt
	// backend the database file lives inside it.
	Root string `env:"DISKCACHE_ROOT"`

	// Backend selects the entry store: "file" (default, multi-process safe)
	// or "bolt" (single database file, one process at a time).
	Backend string `env:"DISKCACHE_BACKEND"`

	// LockTimeout bounds how long a writer waits for a per-digest lock.
	LockTimeout time.Duration `env:"DISKCACHE_LOCK_TIMEOUT"`

	// DigestSize is the digest length in bytes (16–64).
	DigestSize int `env:"DISKCACHE_DIGEST_SIZE"`

	// Compress enables gzip compression of stored payloads.
	Compress bool `env:"DISKCACHE_COMPRESS"`

	// SecondaryRoots are read-only fallback cache roots, searched in order
	// on a primary miss. Colon-separated in the environment, like PATH.
	SecondaryRoots []string `env:"DISKCACHE_SECONDARY_ROOTS" envSeparator:":"`
}

// DefaultConfig returns the configuration for a file-backed cache at root
// with default timeout and digest length.
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		Backend:     BackendFile,
		LockTimeout: lockfile.DefaultTimeout,
		DigestSize:  digest.DefaultSize,
	}
}

// FromEnv builds a Config from the DISKCACHE_* environment variables,
// applying defaults for anything unset, and validates the result.
func FromEnv() (Config, error) {
	cfg := DefaultConfig("")
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrEnvParse, err)
	}
	if err := ValidateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ValidateConfig checks that all configuration values are within acceptable
// ranges and returns the first error encountered, or nil if valid.
func ValidateConfig(cfg Config) error {
	if cfg.Root == "" {
		return ErrEmptyRoot
	}

	if cfg.Backend != BackendFile && cfg.Backend != BackendBolt {
		return fmt.Errorf("%w: got %q", ErrInvalidBackend, cfg.Backend)
	}

	if cfg.LockTimeout <= 0 {
		return ErrInvalidLockTimeout
	}

	if cfg.DigestSize < digest.MinSize || cfg.DigestSize > digest.MaxSize {
		return fmt.Errorf("%w: got %d", ErrInvalidDigestSize, cfg.DigestSize)
	}

	return nil
}
