//go:build unix

package lockfile

import (
	"fmt"
	"os"
	"syscall"
)

// tryFlock attempts a non-blocking exclusive lock on the open file.
// Returns ErrLockHeld if another process holds it.
func tryFlock(f *os.File) error {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return nil
	}
	if err == syscall.EWOULDBLOCK || err == syscall.EAGAIN {
		return ErrLockHeld
	}
	return fmt.Errorf("acquire lock: %w", err)
}

// releaseFlock drops the lock and closes the file. The lock file itself is
// left in place: unlinking it would let a late-arriving process lock a fresh
// inode while another still holds the old one.
func releaseFlock(f *os.File) error {
	if f == nil {
		return nil
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return f.Close()
}

// processAlive reports whether a process with the given PID exists.
// EPERM means the process exists but belongs to another user.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || err == syscall.EPERM
}
