package scheduler

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
)

// ErrLocked means another run holds the lock
var ErrLocked = errors.New("another run is in progress")

const lockName = "run.lock"

// Acquire creates <dir>/run.lock exclusively. The returned func releases it.
func Acquire(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	path := filepath.Join(dir, lockName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("%w (remove %s if it is stale)", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("create lock: %w", err)
	}
	f.WriteString(strconv.Itoa(os.Getpid()) + "\n")
	f.Close()

	return func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("[scheduler] Could not release lock %s: %v", path, err)
		}
	}, nil
}
