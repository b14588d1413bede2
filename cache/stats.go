package cache

import "sync/atomic"

// counters accumulate across the lifetime of a Cache handle.
type counters struct {
	hits         atomic.Uint64
	misses       atomic.Uint64
	corrupt      atomic.Uint64
	lockTimeouts atomic.Uint64
}

// Stats is a point-in-time snapshot of a cache's observability counters.
// CorruptEntries counts reads that found a damaged entry and reported a
// miss; a steadily growing count points at misbehaving storage or an
// out-of-band process touching the cache root.
type Stats struct {
	Hits           uint64
	Misses         uint64
	CorruptEntries uint64
	LockTimeouts   uint64
}

// Stats returns a snapshot of the cache's counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:           c.stats.hits.Load(),
		Misses:         c.stats.misses.Load(),
		CorruptEntries: c.stats.corrupt.Load(),
		LockTimeouts:   c.stats.lockTimeouts.Load(),
	}
}
