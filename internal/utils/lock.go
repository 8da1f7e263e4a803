package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

const (
	lockFileSuffix = ".lock"
)

// IndexLock manages a file-based lock for the calibration index database.
// Several pipeline instances may share one on-disk index; appends are a
// critical section.
type IndexLock struct {
	lock *flock.Flock
	path string
}

// NewIndexLock creates a new lock for the given index path.
func NewIndexLock(dbPath string) (*IndexLock, error) {
	absPath, err := GetAbsIndexPath(dbPath)
	if err != nil {
		return nil, fmt.Errorf("could not get absolute index path: %w", err)
	}
	lockPath := absPath + lockFileSuffix
	return &IndexLock{
		lock: flock.New(lockPath),
		path: lockPath,
	}, nil
}

// Lock acquires the index lock, waiting if necessary.
// It will print a message if it has to wait.
func (l *IndexLock) Lock() error {
	locked, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock on %s: %w", l.path, err)
	}

	if !locked {
		fmt.Fprintf(os.Stderr, "Another oracal process is writing to the calibration index, waiting for it to finish...\n")
		if err := l.lock.Lock(); err != nil {
			return fmt.Errorf("failed to acquire lock on %s after waiting: %w", l.path, err)
		}
	}
	return nil
}

// Unlock releases the index lock.
func (l *IndexLock) Unlock() error {
	if err := l.lock.Unlock(); err != nil {
		// Suppress error if the lock file doesn't exist, as it means we don't hold the lock.
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to release lock on %s: %w", l.path, err)
	}
	return nil
}

// GetAbsIndexPath resolves the index database path.
func GetAbsIndexPath(dbPath string) (string, error) {
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", "oracal", "index.sqlite"), nil
	}
	return filepath.Abs(dbPath)
}
