package storage

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swpatterns/diskcache/digest"
)

// --- Helper functions ---

// makeDigest creates a deterministic digest from a seed.
func makeDigest(t *testing.T, seed string) []byte {
	t.Helper()
	dg, err := digest.Sum("test", []byte(seed), digest.DefaultSize)
	require.NoError(t, err)
	return dg
}

// newTestStore creates a FileStore in a temporary directory.
func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	store, err := NewFileStore(t.TempDir(), false)
	require.NoError(t, err)
	return store
}

// --- Constructor tests ---

func TestNewFileStore_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "cache")
	store, err := NewFileStore(dir, false)
	require.NoError(t, err)
	assert.NotNil(t, store)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewFileStore_EmptyDir(t *testing.T) {
	_, err := NewFileStore("", false)
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

func TestOpenFileStore_Missing(t *testing.T) {
	_, err := OpenFileStore(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, ErrBaseDirNotFound)
}

func TestOpenFileStore_NotADirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))

	_, err := OpenFileStore(path)
	assert.ErrorIs(t, err, ErrInvalidBaseDir)
}

// --- Path layout tests ---

func TestDigestToPath(t *testing.T) {
	dg := makeDigest(t, "layout")
	hexDigest := hex.EncodeToString(dg)

	path := DigestToPath("/base", dg)
	assert.Equal(t, filepath.Join("/base", hexDigest[:2], hexDigest[2:]), path)
}

func TestLockPath_NextToEntry(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "lock")

	assert.Equal(t, store.EntryPath(dg)+".lock", store.LockPath(dg))
}

func TestFileStore_EnsureShard(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "shard")
	shard := filepath.Dir(store.EntryPath(dg))

	require.NoError(t, store.EnsureShard(dg))
	info, err := os.Stat(shard)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent: a second call on an existing shard is a no-op.
	assert.NoError(t, store.EnsureShard(dg))

	assert.ErrorIs(t, store.EnsureShard(nil), ErrInvalidDigest)
}

// --- Read / write tests ---

func TestFileStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "round-trip")
	payload := []byte("derived artifact")

	require.NoError(t, store.WriteEntry(dg, payload))

	got, err := store.ReadEntry(dg)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFileStore_ReadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.ReadEntry(makeDigest(t, "missing"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStore_InvalidDigest(t *testing.T) {
	store := newTestStore(t)

	for _, dg := range [][]byte{nil, {}, make([]byte, digest.MinSize-1), make([]byte, digest.MaxSize+1)} {
		err := store.WriteEntry(dg, []byte("data"))
		assert.ErrorIs(t, err, ErrInvalidDigest)
		_, err = store.ReadEntry(dg)
		assert.ErrorIs(t, err, ErrInvalidDigest)
	}
}

func TestFileStore_OverwriteIdempotent(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "idempotent")
	payload := []byte("value")

	require.NoError(t, store.WriteEntry(dg, payload))
	first, err := os.ReadFile(store.EntryPath(dg))
	require.NoError(t, err)

	require.NoError(t, store.WriteEntry(dg, payload))
	second, err := os.ReadFile(store.EntryPath(dg))
	require.NoError(t, err)

	assert.Equal(t, first, second, "repeated put must leave a byte-identical entry")
}

func TestFileStore_Overwrite(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "overwrite")

	require.NoError(t, store.WriteEntry(dg, []byte("old")))
	require.NoError(t, store.WriteEntry(dg, []byte("new")))

	got, err := store.ReadEntry(dg)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestFileStore_NoTempLeftovers(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "tidy")
	require.NoError(t, store.WriteEntry(dg, []byte("v")))

	files, err := os.ReadDir(filepath.Dir(store.EntryPath(dg)))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, filepath.Base(store.EntryPath(dg)), files[0].Name())
}

// --- Corruption tests ---

func TestFileStore_TruncatedEntry(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "truncated")
	require.NoError(t, store.WriteEntry(dg, []byte("about to be damaged")))

	frame, err := os.ReadFile(store.EntryPath(dg))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(store.EntryPath(dg), frame[:len(frame)/2], 0600))

	_, err = store.ReadEntry(dg)
	assert.ErrorIs(t, err, ErrCorruptEntry)
}

func TestFileStore_CorruptReadDoesNotDelete(t *testing.T) {
	store := newTestStore(t)
	dg := makeDigest(t, "keep")
	require.NoError(t, store.WriteEntry(dg, []byte("damaged soon")))
	require.NoError(t, os.WriteFile(store.EntryPath(dg), []byte("garbage"), 0600))

	_, err := store.ReadEntry(dg)
	require.ErrorIs(t, err, ErrCorruptEntry)

	// The damaged file stays; only a later write replaces it.
	_, err = os.Stat(store.EntryPath(dg))
	assert.NoError(t, err)

	require.NoError(t, store.WriteEntry(dg, []byte("repaired")))
	got, err := store.ReadEntry(dg)
	require.NoError(t, err)
	assert.Equal(t, []byte("repaired"), got)
}

// --- List tests ---

func TestFileStore_List(t *testing.T) {
	store := newTestStore(t)

	want := map[string]bool{}
	for _, seed := range []string{"a", "b", "c"} {
		dg := makeDigest(t, seed)
		require.NoError(t, store.WriteEntry(dg, []byte(seed)))
		want[hex.EncodeToString(dg)] = true
	}

	// Lock files must not show up as entries.
	lock := store.LockPath(makeDigest(t, "a"))
	require.NoError(t, os.WriteFile(lock, []byte("1234"), 0600))

	digests, err := store.List()
	require.NoError(t, err)
	require.Len(t, digests, len(want))
	for _, dg := range digests {
		assert.True(t, want[hex.EncodeToString(dg)])
	}
}
