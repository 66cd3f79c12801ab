// Package election provides the cross-process leader election primitive for
// a workspace index. At most one process on a machine can hold the workspace
// lock; that process becomes the indexing leader, everyone else opens the
// store read-only.
package election

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// Guard represents ownership of the workspace lock. Releasing the guard (or
// process exit) lets a new leader emerge. Ownership is transferred into the
// background build task at spawn time; the task, not the caller that opened
// the workspace, is responsible for release.
type Guard struct {
	fl *flock.Flock
}

// Release drops the lock. Safe to call once; the zero-value Guard must not
// be released.
func (g *Guard) Release() error {
	return g.fl.Unlock()
}

// Path returns the lock file path, mainly for logging.
func (g *Guard) Path() string {
	return g.fl.Path()
}

// TryBecomeLeader attempts a non-blocking exclusive lock on lockPath.
// It returns (guard, true, nil) when this process won the election,
// (nil, false, nil) when another process holds the lock, and a non-nil
// error for any other failure, which callers must treat as fatal.
func TryBecomeLeader(lockPath string) (*Guard, bool, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, false, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	acquired, err := fl.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("acquire workspace lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return &Guard{fl: fl}, true, nil
}
