package store

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	"github.com/gofrs/flock"
)

const (
	lockFileName = "foodiebot.lock"

	DefaultLockTimeout = 5 * time.Second
	DefaultLockRetry   = 100 * time.Millisecond
)

// DirLock keeps a second `foodiebot serve` from sharing the data directory.
type DirLock struct {
	mu         sync.Mutex
	flock      *flock.Flock
	path       string
	acquiredAt time.Time
}

// LockDataDir takes the exclusive lock on dir, retrying every retry until
// timeout elapses.
func LockDataDir(ctx context.Context, dir string, timeout, retry time.Duration) (*DirLock, error) {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	if retry <= 0 {
		retry = DefaultLockRetry
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	path := filepath.Join(dir, lockFileName)
	fl := flock.New(path)

	lockCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	locked, err := fl.TryLockContext(lockCtx, retry)
	if err != nil || !locked {
		return nil, fmt.Errorf("data dir %s is in use by another instance: %w", dir, fbErrors.ErrConflict)
	}

	l := &DirLock{flock: fl, path: path, acquiredAt: time.Now()}
	slog.Debug("Data dir locked", "path", path)
	return l, nil
}

// Unlock releases the lock. Calling it twice is harmless.
func (l *DirLock) Unlock() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.flock == nil {
		return
	}
	if err := l.flock.Unlock(); err != nil {
		slog.Error("Failed to release data dir lock", "path", l.path, "error", err)
	} else {
		slog.Debug("Data dir unlocked", "path", l.path, "held", time.Since(l.acquiredAt))
	}
	l.flock = nil
}

func (l *DirLock) IsLocked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flock != nil
}
