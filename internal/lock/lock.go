// Package lock provides the sentinel-file guard that keeps at most
// one pipeline run active at a time.
package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrHeld is returned when another run holds the lock.
var ErrHeld = errors.New("another pipeline run holds the lock")

// Lock is an acquired sentinel file.
type Lock struct {
	path string
}

// Acquire creates the sentinel file exclusively. A leftover sentinel
// older than stale is treated as abandoned and replaced; stale <= 0
// disables that.
func Acquire(path string, stale time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "%d\n", os.Getpid())
			f.Close()
			return &Lock{path: path}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("creating lock file: %w", err)
		}
		if attempt > 0 || stale <= 0 {
			return nil, ErrHeld
		}
		info, statErr := os.Stat(path)
		if statErr != nil || time.Since(info.ModTime()) < stale {
			return nil, ErrHeld
		}
		// Abandoned by a crashed run, take it over.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("removing stale lock: %w", rmErr)
		}
	}
	return nil, ErrHeld
}

// Release removes the sentinel file. Safe to call on every exit
// path; a missing file is not an error.
func (l *Lock) Release() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file: %w", err)
	}
	return nil
}
