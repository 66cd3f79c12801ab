package workspace

import (
	"context"
	"fmt"
	"time"

	"github.com/codelensdev/codelens/internal/election"
	"github.com/codelensdev/codelens/internal/indexer"
	"github.com/codelensdev/codelens/internal/scanner"
	"github.com/codelensdev/codelens/internal/storage"
	"github.com/codelensdev/codelens/pkg/types"
)

// Reader ready-wait policy: exponential backoff until the leader's schema
// is queryable, then a hard failure. A reader never proceeds with an
// unusable handle.
const (
	readerInitialBackoff = 50 * time.Millisecond
	readerMaxBackoff     = 500 * time.Millisecond
	defaultReadyTimeout  = 5 * time.Second
)

// role is the outcome of leader election for one process. Exactly one of
// the two shapes exists: a leader holds the lock guard, a read-write store
// handle, and the precomputed skip-set; a reader holds only a read-only
// handle. Both roles query through the read-only handle, so even the leader
// observes its own writes through the same eventually-consistent path as
// everyone else.
type role struct {
	leader bool
	guard  *election.Guard
	rw     *storage.SQLiteStore
	ro     *storage.SQLiteStore
	skip   map[string]struct{}
}

// resolve attempts the non-blocking workspace lock and opens store handles
// for whichever role this process gets. The leader's skip-set is computed
// synchronously here so the background build starts with accurate knowledge
// of what to skip.
func resolve(ctx context.Context, root, lockPath, dbPath string, langs types.Languages, ignore *scanner.IgnoreSet, readyTimeout time.Duration) (*role, error) {
	guard, acquired, err := election.TryBecomeLeader(lockPath)
	if err != nil {
		return nil, types.NewInitError("acquire lock", err)
	}

	if !acquired {
		ro, err := waitForReadable(ctx, dbPath, readyTimeout)
		if err != nil {
			return nil, err
		}
		return &role{ro: ro}, nil
	}

	rw, err := storage.OpenReadWrite(dbPath)
	if err != nil {
		_ = guard.Release()
		return nil, types.NewInitError("open store", err)
	}

	skip, err := indexer.UnchangedFiles(ctx, root, rw, langs, ignore)
	if err != nil {
		_ = rw.Close()
		_ = guard.Release()
		return nil, types.NewInitError("compute skip set", err)
	}

	// The leader's own query path goes through a private read-only handle.
	ro, err := storage.OpenReadOnly(dbPath)
	if err != nil {
		_ = rw.Close()
		_ = guard.Release()
		return nil, types.NewInitError("open read handle", err)
	}

	return &role{leader: true, guard: guard, rw: rw, ro: ro, skip: skip}, nil
}

// waitForReadable polls until the store schema answers a query or the
// timeout elapses. Timeout is a fatal initialization error, never a silent
// degraded mode.
func waitForReadable(ctx context.Context, dbPath string, timeout time.Duration) (*storage.SQLiteStore, error) {
	if timeout <= 0 {
		timeout = defaultReadyTimeout
	}
	deadline := time.Now().Add(timeout)
	backoff := readerInitialBackoff

	var lastErr error
	for {
		ro, err := storage.OpenReadOnly(dbPath)
		if err == nil {
			if probeErr := ro.Probe(ctx); probeErr == nil {
				return ro, nil
			} else {
				lastErr = probeErr
				_ = ro.Close()
			}
		} else {
			lastErr = err
		}

		if time.Now().After(deadline) {
			if lastErr != nil {
				return nil, types.NewInitError("wait for index",
					fmt.Errorf("%w: %v", types.ErrNotReady, lastErr))
			}
			return nil, types.NewInitError("wait for index", types.ErrNotReady)
		}
		select {
		case <-ctx.Done():
			return nil, types.NewInitError("wait for index", ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > readerMaxBackoff {
			backoff = readerMaxBackoff
		}
	}
}
