package state

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

// AppendLine appends one line to a shared log under an exclusive advisory
// lock. Concurrent recorder processes write the same file, so the lock is
// acquired with bounded retry rather than blocking forever; retryDelay is
// the poll interval and timeout caps the total wait.
func AppendLine(path string, line []byte, retryDelay, timeout time.Duration) error {
	lock := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	locked, err := lock.TryLockContext(ctx, retryDelay)
	if err != nil {
		return fmt.Errorf("failed to lock log %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("failed to lock log %s: timed out after %s", path, timeout)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open log %s: %w", path, err)
	}
	defer f.Close()

	if len(line) == 0 || line[len(line)-1] != '\n' {
		line = append(line, '\n')
	}
	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("failed to append to log %s: %w", path, err)
	}
	return nil
}
