package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrAlreadyRunning = errors.New("another seedpull instance holds the session lock")

// InstanceLock keeps two daemons from driving lftp against the same mirror
type InstanceLock struct {
	path string
	lock *flock.Flock
}

// AcquireLock takes the lock at path without blocking
func AcquireLock(path string) (*InstanceLock, error) {
	if path == "" {
		return nil, errors.New("lock path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrAlreadyRunning
	}
	return &InstanceLock{path: path, lock: lock}, nil
}

func (l *InstanceLock) Path() string {
	return l.path
}

// Release unlocks and removes the lock file
func (l *InstanceLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	_ = os.Remove(l.path)
	return nil
}
