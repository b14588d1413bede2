// Package lockfile serializes cross-process writers with advisory file
// locks. A lock is an OS-level flock on a per-digest lock file; it exists
// only in the kernel's lock table, is held for the duration of a single
// write, and drops automatically if the holding process dies — a crashed
// holder can never wedge future writers. The holder's PID is recorded in
// the lock file purely for timeout diagnostics; a live lock is never broken
// based on it.
package lockfile

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds lock acquisition when the caller passes a
	// non-positive timeout. Generous on purpose: a writer ahead of us is
	// usually streaming an entry to disk, not stuck.
	DefaultTimeout = 30 * time.Second

	// pollInterval is the delay between non-blocking acquisition attempts.
	pollInterval = 25 * time.Millisecond
)

// Lock is a held advisory lock. It must be released by the caller and never
// outlives the operation that acquired it.
type Lock struct {
	f    *os.File
	path string
}

// Release drops the lock. Safe to call on every exit path; releasing an
// already-released lock is a no-op.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil
	return releaseFlock(f)
}

// TryAcquire attempts a single non-blocking acquisition.
// Returns ErrLockHeld if another process holds the lock.
func TryAcquire(path string) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}
	if err := tryFlock(f); err != nil {
		_ = f.Close()
		if errors.Is(err, ErrLockHeld) {
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, path)
		}
		return nil, fmt.Errorf("lockfile: %s: %w", path, err)
	}
	recordHolder(f)
	return &Lock{f: f, path: path}, nil
}

// Acquire obtains the exclusive lock at path, polling until it succeeds, the
// timeout elapses, or ctx is cancelled. A non-positive timeout selects
// DefaultTimeout. On timeout the error is ErrLockTimeout, annotated with the
// recorded holder PID and whether that process still exists.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	for {
		l, err := TryAcquire(path)
		if err == nil {
			return l, nil
		}
		if !errors.Is(err, ErrLockHeld) {
			return nil, err
		}

		if time.Now().After(deadline) {
			return nil, timeoutError(path)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lockfile: %s: %w", path, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// WithLock runs fn while holding the exclusive lock at path. The lock is
// released on every exit path — success, error, or panic — so a cancelled or
// failing fn never leaves the lock behind.
func WithLock(ctx context.Context, path string, timeout time.Duration, fn func() error) error {
	l, err := Acquire(ctx, path, timeout)
	if err != nil {
		return err
	}
	defer func() { _ = l.Release() }()
	return fn()
}

// recordHolder writes our PID into the lock file for diagnostics.
// Best-effort: the flock, not the file contents, is the lock.
func recordHolder(f *os.File) {
	pid := strconv.Itoa(os.Getpid())
	if err := f.Truncate(0); err != nil {
		return
	}
	_, _ = f.WriteAt([]byte(pid), 0)
}

// timeoutError builds the ErrLockTimeout for path, including what is known
// about the recorded holder. With flock a dead holder's lock is released by
// the kernel, so contention past the timeout normally means a live, slow
// holder — which is exactly why the lock is surfaced rather than broken.
func timeoutError(path string) error {
	pid := readHolder(path)
	switch {
	case pid > 0 && processAlive(pid):
		return fmt.Errorf("%w: %s (held by running pid %d)", ErrLockTimeout, path, pid)
	case pid > 0:
		return fmt.Errorf("%w: %s (recorded holder pid %d no longer exists)", ErrLockTimeout, path, pid)
	default:
		return fmt.Errorf("%w: %s", ErrLockTimeout, path)
	}
}

// readHolder returns the PID recorded in the lock file, or 0.
func readHolder(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}
