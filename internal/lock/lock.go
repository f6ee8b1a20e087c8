// Package lock serializes invocations against a repository with an
// exclusive OS-level file lock.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"
)

// ErrTimeout is returned when the lock is still held by another process
// after the acquisition timeout.
var ErrTimeout = errors.New("lock acquisition timed out")

// pollInterval is how often a contended lock is retried.
const pollInterval = 25 * time.Millisecond

// Lock is an acquired exclusive lock on a file. Release it exactly once.
type Lock struct {
	path string
	file *os.File
}

// Acquire takes an exclusive lock on path, creating the file if needed.
// It never blocks in the kernel: a contended lock is polled until timeout
// elapses or ctx is done.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		ok, err := tryLock(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("locking %s: %w", path, err)
		}
		if ok {
			return &Lock{path: path, file: f}, nil
		}

		if !time.Now().Before(deadline) {
			f.Close()
			return nil, fmt.Errorf("%s: %w after %s", path, ErrTimeout, timeout)
		}

		select {
		case <-ctx.Done():
			f.Close()
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Release drops the lock and closes the file. It is safe to call on a nil
// or already released lock.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	f := l.file
	l.file = nil

	unlockErr := unlock(f)
	closeErr := f.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.path, unlockErr)
	}
	return closeErr
}
