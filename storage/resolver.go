package storage

import (
	"errors"
	"fmt"

	"github.com/swpatterns/diskcache/lockfile"
)

// Resolver reads entries from the primary store plus optional read-only
// secondary roots, in priority order. Secondary roots typically point at a
// shared cache directory populated by other users or a CI fleet on the same
// machine; they are never written to, but a secondary hit is backfilled into
// the primary store so later reads stay local.
type Resolver struct {
	Primary   EntryStore
	Secondary []*FileStore
}

// NewResolver creates a Resolver over the given primary store.
// Secondary roots are added with AddSecondary.
func NewResolver(primary EntryStore) *Resolver {
	return &Resolver{Primary: primary}
}

// AddSecondary registers an existing directory as a read-only fallback root.
func (r *Resolver) AddSecondary(baseDir string) error {
	fs, err := OpenFileStore(baseDir)
	if err != nil {
		return err
	}
	r.Secondary = append(r.Secondary, fs)
	return nil
}

// Fetch retrieves the payload for digest, trying the primary store first and
// then each secondary root in order. A primary miss falls through to the
// secondaries; a corrupt or failing primary read is returned as-is so the
// caller can account for it. Secondary hits are written back into the
// primary on a best-effort basis.
func (r *Resolver) Fetch(dg []byte) ([]byte, error) {
	payload, err := r.Primary.ReadEntry(dg)
	if err == nil {
		return payload, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	for _, fs := range r.Secondary {
		payload, serr := fs.ReadEntry(dg)
		if serr != nil {
			// A missing or corrupt secondary entry just means this root
			// cannot help; try the next one.
			continue
		}
		r.backfill(dg, payload)
		return payload, nil
	}

	return nil, ErrNotFound
}

// backfill stores a secondary hit into the primary, honoring the primary's
// per-digest write lock so backfills order with ordinary writers. The lock
// is only probed, never waited on: a busy lock means a writer is already
// storing this digest, and a best-effort backfill has nothing to add. Store
// backends without per-digest locks (bolt) serialize writers themselves.
func (r *Resolver) backfill(dg, payload []byte) {
	fs, ok := r.Primary.(*FileStore)
	if !ok {
		_ = r.Primary.WriteEntry(dg, payload)
		return
	}

	if err := fs.EnsureShard(dg); err != nil {
		return
	}
	l, err := lockfile.TryAcquire(fs.LockPath(dg))
	if err != nil {
		return
	}
	defer l.Release()
	_ = fs.WriteEntry(dg, payload)
}

// Has reports whether any store holds an entry for digest.
func (r *Resolver) Has(dg []byte) (bool, error) {
	found, err := r.Primary.HasEntry(dg)
	if err != nil {
		return false, fmt.Errorf("resolver: primary: %w", err)
	}
	if found {
		return true, nil
	}

	for _, fs := range r.Secondary {
		found, err := fs.HasEntry(dg)
		if err != nil {
			continue
		}
		if found {
			return true, nil
		}
	}
	return false, nil
}
