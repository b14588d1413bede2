package storage

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// FileStore implements EntryStore on the local filesystem.
// Entries are stored at: {baseDir}/{hex(digest)[:2]}/{hex(digest)[2:]}
// The first byte (2 hex chars) is used as a subdirectory to bound directory
// fan-out. FileStore exclusively owns the tree under baseDir; writes go
// through a temp-file-then-rename sequence so concurrent readers observe
// either the previous complete entry or the new one, never a partial write.
type FileStore struct {
	baseDir  string
	compress bool
	mu       sync.RWMutex
}

// NewFileStore creates a file-based entry store rooted at baseDir.
// The directory is created if it does not exist. With compress set, written
// payloads are gzip-compressed when that shrinks them.
func NewFileStore(baseDir string, compress bool) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("%w: create %s: %w", ErrIOFailure, baseDir, err)
	}
	return &FileStore{baseDir: baseDir, compress: compress}, nil
}

// OpenFileStore opens an existing store at baseDir without creating it.
// Used for read-only secondary roots, where a missing directory is a
// configuration signal rather than something to paper over with a mkdir.
func OpenFileStore(baseDir string) (*FileStore, error) {
	if baseDir == "" {
		return nil, ErrInvalidBaseDir
	}
	info, err := os.Stat(baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrBaseDirNotFound, baseDir)
		}
		return nil, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrInvalidBaseDir, baseDir)
	}
	return &FileStore{baseDir: baseDir}, nil
}

// DigestToPath converts a digest to its filesystem path.
// Uses the first byte as a shard subdirectory: {base}/{ab}/{cdef...}
func DigestToPath(baseDir string, dg []byte) string {
	hexDigest := hex.EncodeToString(dg)
	return filepath.Join(baseDir, hexDigest[:2], hexDigest[2:])
}

// EntryPath returns the full path of the entry file for a digest.
func (fs *FileStore) EntryPath(dg []byte) string {
	return DigestToPath(fs.baseDir, dg)
}

// LockPath returns the advisory lock file path guarding writes to a digest.
// The lock file sits next to the entry in the same shard directory; its name
// is not valid hex, so directory scans never mistake it for an entry.
func (fs *FileStore) LockPath(dg []byte) string {
	return fs.EntryPath(dg) + ".lock"
}

// shardDir returns the shard directory path for a digest.
func (fs *FileStore) shardDir(dg []byte) string {
	hexDigest := hex.EncodeToString(dg)
	return filepath.Join(fs.baseDir, hexDigest[:2])
}

// EnsureShard creates the shard directory for a digest if absent, ignoring
// "already exists" races. Callers that place a file next to the entry — the
// per-digest lock file in particular — need the directory before the first
// write ever lands in that shard.
func (fs *FileStore) EnsureShard(dg []byte) error {
	if err := validateDigest(dg); err != nil {
		return err
	}
	shard := fs.shardDir(dg)
	if err := os.MkdirAll(shard, 0700); err != nil {
		return fmt.Errorf("%w: create shard %s: %w", ErrIOFailure, shard, err)
	}
	return nil
}

// ReadEntry returns the payload stored for digest.
func (fs *FileStore) ReadEntry(dg []byte) ([]byte, error) {
	if err := validateDigest(dg); err != nil {
		return nil, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path := fs.EntryPath(dg)
	frame, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, path, err)
	}

	payload, err := DecodeEntry(frame)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", hex.EncodeToString(dg), err)
	}
	return payload, nil
}

// WriteEntry stores payload under digest. The frame is written to a hidden
// temp file in the destination shard directory, synced, then renamed over
// the final path in one step. The temp file is removed on any failure.
func (fs *FileStore) WriteEntry(dg []byte, payload []byte) error {
	if err := validateDigest(dg); err != nil {
		return err
	}

	frame, err := EncodeEntry(payload, fs.compress)
	if err != nil {
		return err
	}

	if err := fs.EnsureShard(dg); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	shard := fs.shardDir(dg)

	// Temp file must live in the same directory as the final path so the
	// rename cannot cross filesystems and stays atomic.
	tmp, err := os.CreateTemp(shard, ".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %w", ErrIOFailure, shard, err)
	}
	tmpPath := tmp.Name()

	if err := writeAndSync(tmp, frame); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: write %s: %w", ErrIOFailure, tmpPath, err)
	}

	path := fs.EntryPath(dg)
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("%w: rename to %s: %w", ErrIOFailure, path, err)
	}
	return nil
}

// writeAndSync writes data to f, flushes it to stable storage, and closes f.
func writeAndSync(f *os.File, data []byte) error {
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// HasEntry reports whether an entry file exists for digest.
func (fs *FileStore) HasEntry(dg []byte) (bool, error) {
	if err := validateDigest(dg); err != nil {
		return false, err
	}

	fs.mu.RLock()
	defer fs.mu.RUnlock()

	path := fs.EntryPath(dg)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("%w: stat %s: %w", ErrIOFailure, path, err)
	}
	return true, nil
}

// Close releases no resources for a FileStore; it exists to satisfy EntryStore.
func (fs *FileStore) Close() error { return nil }

// List returns all stored digests by scanning the shard directories.
// Lock files, temp files, and other non-hex names are skipped. Intended for
// out-of-band maintenance tooling; the cache itself never deletes entries.
func (fs *FileStore) List() ([][]byte, error) {
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	var result [][]byte

	entries, err := os.ReadDir(fs.baseDir)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrIOFailure, fs.baseDir, err)
	}

	for _, entry := range entries {
		if !entry.IsDir() || len(entry.Name()) != 2 {
			continue
		}

		shardPath := filepath.Join(fs.baseDir, entry.Name())
		files, err := os.ReadDir(shardPath)
		if err != nil {
			continue
		}

		for _, f := range files {
			if f.IsDir() {
				continue
			}
			dg, err := hex.DecodeString(entry.Name() + f.Name())
			if err != nil {
				continue // lock or temp file
			}
			if validateDigest(dg) != nil {
				continue
			}
			result = append(result, dg)
		}
	}

	return result, nil
}
