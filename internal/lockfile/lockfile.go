// Package lockfile provides a per-directory advisory lock guarding a pull
// or sync so two concurrent processes never race on the same staging
// rename or sidecar sync state.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// lockFileName is the well-known lock file created inside a guarded
// directory. It is harmless if left behind: the kernel releases the flock
// when the holding process's file descriptor closes, including on crash.
const lockFileName = ".binrep.lock"

// ErrLocked is returned when the lock is already held by another process.
// The caller decides whether to report it or retry; Lock itself never
// blocks or retries.
var ErrLocked = errors.New("lockfile: destination is locked by another process")

// Lock holds an acquired advisory lock. Call Unlock to release it.
type Lock struct {
	file *os.File
}

// Acquire opens (creating if absent) the lock file inside dir and takes a
// non-blocking exclusive flock on it. If another process already holds
// the lock, Acquire returns ErrLocked immediately.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, lockFileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}

	return &Lock{file: f}, nil
}

// Unlock releases the flock and closes the file descriptor. Safe to call
// multiple times; later calls are no-ops.
func (l *Lock) Unlock() error {
	if l == nil || l.file == nil {
		return nil
	}
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		l.file.Close()
		l.file = nil
		return fmt.Errorf("lockfile: unlock: %w", err)
	}
	err := l.file.Close()
	l.file = nil
	return err
}
