package storage

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"
)

var bucketEntries = []byte("entries")

// BoltStore implements EntryStore on a single bbolt database file. It stores
// the same checksummed frames as FileStore, so payload validation behaves
// identically across backends. bbolt serializes writers internally and holds
// an exclusive lock on the database file, which makes this backend a fit for
// single-process embedded use where one file beats a directory tree; the
// per-digest advisory locks of the file backend are unnecessary here.
type BoltStore struct {
	db       *bbolt.DB
	compress bool
}

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string, compress bool) (*BoltStore, error) {
	if dbPath == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIOFailure, filepath.Dir(dbPath), err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrIOFailure, dbPath, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketEntries)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create bucket: %w", ErrIOFailure, err)
	}

	return &BoltStore{db: db, compress: compress}, nil
}

// ReadEntry returns the payload stored for digest.
func (s *BoltStore) ReadEntry(dg []byte) ([]byte, error) {
	if err := validateDigest(dg); err != nil {
		return nil, err
	}

	var frame []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketEntries).Get(dg)
		if v == nil {
			return ErrNotFound
		}
		// Copy out: bbolt values are only valid inside the transaction.
		frame = make([]byte, len(v))
		copy(frame, v)
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read entry: %w", ErrIOFailure, err)
	}

	payload, err := DecodeEntry(frame)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", hex.EncodeToString(dg), err)
	}
	return payload, nil
}

// WriteEntry stores payload under digest. bbolt's transaction commit gives
// the same all-or-nothing visibility as the file backend's atomic rename.
func (s *BoltStore) WriteEntry(dg []byte, payload []byte) error {
	if err := validateDigest(dg); err != nil {
		return err
	}

	frame, err := EncodeEntry(payload, s.compress)
	if err != nil {
		return err
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEntries).Put(dg, frame)
	})
	if err != nil {
		return fmt.Errorf("%w: write entry %s: %w", ErrIOFailure, hex.EncodeToString(dg), err)
	}
	return nil
}

// HasEntry reports whether an entry exists for digest.
func (s *BoltStore) HasEntry(dg []byte) (bool, error) {
	if err := validateDigest(dg); err != nil {
		return false, err
	}

	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		found = tx.Bucket(bucketEntries).Get(dg) != nil
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: check entry: %w", ErrIOFailure, err)
	}
	return found, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }
