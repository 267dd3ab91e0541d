package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// ErrLocked means another process (normally the running panel) owns the
// snapshot. Only the lock holder may write it.
var ErrLocked = errors.New("notification history is in use by another sidebar process")

// Lock is an exclusive, advisory lock on a snapshot path. The kernel drops
// it when the holder exits, so a crash never leaves a stale lock behind.
type Lock struct {
	f *os.File
}

// LockPath returns the lock file used for a snapshot at path.
func LockPath(snapshotPath string) string {
	return snapshotPath + ".lock"
}

// AcquireLock takes the lock for snapshotPath without blocking.
// It returns ErrLocked if another holder exists.
func AcquireLock(snapshotPath string) (*Lock, error) {
	path := LockPath(snapshotPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := tryLock(f); err != nil {
		f.Close()
		if errors.Is(err, ErrLocked) {
			return nil, fmt.Errorf("%w (%s)", ErrLocked, path)
		}
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}

	// Holder PID, for humans only.
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
	return &Lock{f: f}, nil
}

// Release drops the lock. Safe to call on a nil Lock and more than once.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	err := unlock(l.f)
	if cerr := l.f.Close(); err == nil {
		err = cerr
	}
	l.f = nil
	return err
}
