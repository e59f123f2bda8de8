package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	sberrors "github.com/Aman-CERP/songbook/internal/errors"
)

// FileLock provides cross-process file locking using gofrs/flock.
// It keeps two songbook processes from rewriting the cache at the same time.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock at path. The file is created on first use.
func NewFileLock(path string) *FileLock {
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryLock attempts to acquire the lock without blocking.
// Returns true if the lock was acquired, false if it's held by another process.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if acquired {
		l.locked = true
	}
	return acquired, nil
}

// LockContext acquires the lock, retrying with backoff while another process
// holds it. It gives up with ErrCacheBusy once cfg's retries are exhausted.
func (l *FileLock) LockContext(ctx context.Context, cfg sberrors.RetryConfig) error {
	return sberrors.Retry(ctx, cfg, func() error {
		acquired, err := l.TryLock()
		if err != nil {
			return sberrors.New(sberrors.ErrCodeCacheUnavailable, err.Error(), err)
		}
		if !acquired {
			return sberrors.New(sberrors.ErrCodeCacheBusy, "cache is locked by another process", nil).
				WithDetail("lock", l.path)
		}
		return nil
	})
}

// Unlock releases the file lock.
// It's safe to call Unlock multiple times or on an unlocked FileLock.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}

	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *FileLock) IsLocked() bool {
	return l.locked
}
