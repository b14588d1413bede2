// Package cache is the public facade of the disk cache: a persistent,
// content-addressed key-value store shared by independent processes on one
// machine. Callers supply a structured key and a version tag; the cache
// derives a stable digest and stores an opaque byte payload under it.
// Changing the version tag makes all prior entries unreachable without
// touching them, which is the only invalidation mechanism.
package cache

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"

	"github.com/swpatterns/diskcache/config"
	"github.com/swpatterns/diskcache/digest"
	"github.com/swpatterns/diskcache/keyenc"
	"github.com/swpatterns/diskcache/lockfile"
	"github.com/swpatterns/diskcache/storage"
)

// boltFileName is the database file used inside the root for the bolt backend.
const boltFileName = "cache.db"

// Cache is a handle on one cache root. It holds no global state: construct
// one per root (tests use temporary directories) and share it freely between
// goroutines. Cross-process coordination happens entirely on disk.
type Cache struct {
	cfg      config.Config
	store    storage.EntryStore
	resolver *storage.Resolver
	files    *storage.FileStore // nil for the bolt backend
	log      atomic.Pointer[log.Interface]
	stats    counters
}

// discardLogger swallows all diagnostics; the default until SetLogger.
func discardLogger() log.Interface {
	return &log.Logger{Handler: discard.New(), Level: log.InfoLevel}
}

// New creates a Cache from cfg, creating the root directory if absent.
// Diagnostics are discarded until SetLogger is called.
func New(cfg config.Config) (*Cache, error) {
	if err := config.ValidateConfig(cfg); err != nil {
		return nil, err
	}

	c := &Cache{cfg: cfg}
	c.SetLogger(nil)

	switch cfg.Backend {
	case config.BackendBolt:
		store, err := storage.OpenBoltStore(filepath.Join(cfg.Root, boltFileName), cfg.Compress)
		if err != nil {
			return nil, err
		}
		c.store = store
	default:
		store, err := storage.NewFileStore(cfg.Root, cfg.Compress)
		if err != nil {
			return nil, err
		}
		c.store = store
		c.files = store
	}

	c.resolver = storage.NewResolver(c.store)
	for _, root := range cfg.SecondaryRoots {
		if err := c.resolver.AddSecondary(root); err != nil {
			// A shared root may be unmounted or not yet populated; the
			// cache still works without it.
			c.logger().WithError(err).WithField("root", root).Warn("skipping secondary cache root")
		}
	}

	return c, nil
}

// SetLogger directs diagnostics (corrupt entries, skipped secondary roots)
// to l. Passing nil restores the discard logger. Safe to call while other
// goroutines are using the cache.
func (c *Cache) SetLogger(l log.Interface) {
	if l == nil {
		l = discardLogger()
	}
	c.log.Store(&l)
}

// logger returns the current diagnostics logger.
func (c *Cache) logger() log.Interface { return *c.log.Load() }

// Get returns the value cached for key under version, or ErrNotFound.
//
// A corrupt entry reads as ErrNotFound so callers transparently recompute;
// the event is logged and counted rather than surfaced, since the recompute
// path fully recovers. Key encoding errors surface immediately.
func (c *Cache) Get(key any, version string) ([]byte, error) {
	dg, err := c.digestOf(key, version)
	if err != nil {
		return nil, err
	}

	payload, err := c.resolver.Fetch(dg)
	switch {
	case err == nil:
		c.stats.hits.Add(1)
		return payload, nil
	case errors.Is(err, storage.ErrNotFound):
		c.stats.misses.Add(1)
		return nil, ErrNotFound
	case errors.Is(err, storage.ErrCorruptEntry):
		c.stats.corrupt.Add(1)
		c.logger().WithError(err).
			WithField("digest", hex.EncodeToString(dg)).
			Warn("corrupt cache entry treated as miss")
		return nil, ErrNotFound
	default:
		return nil, fmt.Errorf("cache: get %s: %w", hex.EncodeToString(dg), err)
	}
}

// Put stores value for key under version. Writers racing on the same key are
// serialized by an advisory per-digest lock, bounded by the configured
// timeout; ctx cancels the wait. Whatever the outcome, the lock never
// outlives the call. Readers are never blocked: the entry becomes visible
// only through an atomic replace.
func (c *Cache) Put(ctx context.Context, key any, version string, value []byte) error {
	dg, err := c.digestOf(key, version)
	if err != nil {
		return err
	}

	if c.files == nil {
		// The bolt backend serializes writers itself and holds its own
		// exclusive file lock for the lifetime of the handle.
		return c.store.WriteEntry(dg, value)
	}

	// The lock file lives in the entry's shard directory, which must exist
	// before the very first write to that shard can take the lock.
	if err := c.files.EnsureShard(dg); err != nil {
		return err
	}

	err = lockfile.WithLock(ctx, c.files.LockPath(dg), c.cfg.LockTimeout, func() error {
		return c.store.WriteEntry(dg, value)
	})
	if errors.Is(err, lockfile.ErrLockTimeout) {
		c.stats.lockTimeouts.Add(1)
	}
	return err
}

// Contains reports whether a value is cached for key under version, without
// reading or validating the payload.
func (c *Cache) Contains(key any, version string) (bool, error) {
	dg, err := c.digestOf(key, version)
	if err != nil {
		return false, err
	}
	return c.resolver.Has(dg)
}

// Close releases the underlying store. A file-backed cache holds no open
// resources; a bolt-backed one releases its database lock.
func (c *Cache) Close() error {
	return c.store.Close()
}

// digestOf encodes key canonically and hashes it with the version tag.
// Errors deliberately omit the key's contents, which may be large or
// sensitive; the caller already has the key in hand.
func (c *Cache) digestOf(key any, version string) ([]byte, error) {
	encoded, err := keyenc.Encode(key)
	if err != nil {
		return nil, err
	}
	dg, err := digest.Sum(version, encoded, c.cfg.DigestSize)
	if err != nil {
		return nil, err
	}
	return dg, nil
}
