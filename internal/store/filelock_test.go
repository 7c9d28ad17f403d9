package store

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	fbErrors "github.com/harunnryd/foodiebot/internal/errors"

	"github.com/gofrs/flock"
)

func TestLockDataDir(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockDataDir(context.Background(), dir, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if !lock.IsLocked() {
		t.Error("Expected lock to be held")
	}

	lock.Unlock()
	if lock.IsLocked() {
		t.Error("Expected lock to be released after Unlock()")
	}

	lock.Unlock()
}

func TestLockDataDir_SecondInstanceFails(t *testing.T) {
	dir := t.TempDir()

	first, err := LockDataDir(context.Background(), dir, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer first.Unlock()

	start := time.Now()
	second, err := LockDataDir(context.Background(), dir, 120*time.Millisecond, 10*time.Millisecond)
	if err == nil {
		second.Unlock()
		t.Fatal("Expected second lock acquisition to fail")
	}
	if !errors.Is(err, fbErrors.ErrConflict) {
		t.Errorf("Expected ErrConflict, got %v", err)
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("Expected retry behavior before failing, got elapsed=%v", elapsed)
	}
}

func TestLockDataDir_ReacquireAfterUnlock(t *testing.T) {
	dir := t.TempDir()

	first, err := LockDataDir(context.Background(), dir, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	first.Unlock()

	second, err := LockDataDir(context.Background(), dir, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Expected lock to be free again: %v", err)
	}
	second.Unlock()
}

func TestLockDataDir_Exclusive(t *testing.T) {
	dir := t.TempDir()

	var (
		wg            sync.WaitGroup
		mu            sync.Mutex
		acquired      int
		inCritical    int
		maxConcurrent int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lock, err := LockDataDir(context.Background(), dir, 500*time.Millisecond, 5*time.Millisecond)
			if err != nil {
				return
			}
			defer lock.Unlock()

			mu.Lock()
			acquired++
			inCritical++
			if inCritical > maxConcurrent {
				maxConcurrent = inCritical
			}
			mu.Unlock()

			time.Sleep(10 * time.Millisecond)

			mu.Lock()
			inCritical--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if acquired == 0 {
		t.Error("Expected at least one lock to be acquired")
	}
	if maxConcurrent > 1 {
		t.Errorf("Expected lock exclusivity, max concurrent holders=%d", maxConcurrent)
	}
}

func TestLockDataDir_VisibleToFlock(t *testing.T) {
	dir := t.TempDir()

	lock, err := LockDataDir(context.Background(), dir, time.Second, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Unlock()

	other := flock.New(filepath.Join(dir, lockFileName))
	locked, err := other.TryLock()
	if err != nil {
		t.Fatalf("flock TryLock failed: %v", err)
	}
	if locked {
		other.Unlock()
		t.Error("Expected flock to fail due to held lock")
	}
}
