package lockfile

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lockPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "entry.lock")
}

// --- Acquire / Release tests ---

func TestAcquire_CreatesLockFile(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer l.Release()

	_, err = os.Stat(path)
	assert.NoError(t, err)
}

func TestAcquire_RecordsHolderPID(t *testing.T) {
	path := lockPath(t)

	l, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	defer l.Release()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), pid)
}

func TestRelease_ThenReacquire(t *testing.T) {
	path := lockPath(t)

	l1, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.NoError(t, l1.Release())

	l2, err := Acquire(context.Background(), path, time.Second)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestRelease_Idempotent(t *testing.T) {
	l, err := Acquire(context.Background(), lockPath(t), time.Second)
	require.NoError(t, err)

	assert.NoError(t, l.Release())
	assert.NoError(t, l.Release())
}

// --- Contention tests ---

func TestTryAcquire_Held(t *testing.T) {
	path := lockPath(t)

	l, err := TryAcquire(path)
	require.NoError(t, err)
	defer l.Release()

	// flock conflicts between separate opens even within one process.
	_, err = TryAcquire(path)
	assert.ErrorIs(t, err, ErrLockHeld)
}

func TestAcquire_TimesOut(t *testing.T) {
	path := lockPath(t)

	l, err := TryAcquire(path)
	require.NoError(t, err)
	defer l.Release()

	start := time.Now()
	_, err = Acquire(context.Background(), path, 150*time.Millisecond)
	assert.ErrorIs(t, err, ErrLockTimeout)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout must be bounded, not a hang")
	// The holder is this (live) process; the error should say so.
	assert.Contains(t, err.Error(), strconv.Itoa(os.Getpid()))
}

func TestAcquire_WaitsForRelease(t *testing.T) {
	path := lockPath(t)

	l, err := TryAcquire(path)
	require.NoError(t, err)

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = l.Release()
	}()

	l2, err := Acquire(context.Background(), path, 5*time.Second)
	require.NoError(t, err)
	assert.NoError(t, l2.Release())
}

func TestAcquire_ContextCancelled(t *testing.T) {
	path := lockPath(t)

	l, err := TryAcquire(path)
	require.NoError(t, err)
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err = Acquire(ctx, path, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

// --- WithLock tests ---

func TestWithLock_ReleasesOnSuccess(t *testing.T) {
	path := lockPath(t)

	err := WithLock(context.Background(), path, time.Second, func() error { return nil })
	require.NoError(t, err)

	l, err := TryAcquire(path)
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}

func TestWithLock_ReleasesOnError(t *testing.T) {
	path := lockPath(t)
	boom := errors.New("compute failed")

	err := WithLock(context.Background(), path, time.Second, func() error { return boom })
	assert.ErrorIs(t, err, boom)

	l, err := TryAcquire(path)
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}

func TestWithLock_ReleasesOnPanic(t *testing.T) {
	path := lockPath(t)

	assert.Panics(t, func() {
		_ = WithLock(context.Background(), path, time.Second, func() error { panic("boom") })
	})

	l, err := TryAcquire(path)
	require.NoError(t, err)
	assert.NoError(t, l.Release())
}

func TestWithLock_Excludes(t *testing.T) {
	path := lockPath(t)

	held := make(chan struct{})
	proceed := make(chan struct{})
	done := make(chan error, 1)

	go func() {
		done <- WithLock(context.Background(), path, time.Second, func() error {
			close(held)
			<-proceed
			return nil
		})
	}()

	<-held
	_, err := TryAcquire(path)
	assert.ErrorIs(t, err, ErrLockHeld)

	close(proceed)
	require.NoError(t, <-done)
}
