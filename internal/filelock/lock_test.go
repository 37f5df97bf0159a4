package filelock

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestAcquireRelease(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if lock.PID != os.Getpid() {
		t.Errorf("lock PID = %d, want %d", lock.PID, os.Getpid())
	}

	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Fatalf("lock file not created: %v", err)
	}

	holder, held := Holder(dir)
	if !held {
		t.Fatal("Holder reported unlocked while lock held")
	}
	if holder.PID != os.Getpid() {
		t.Errorf("holder PID = %d, want %d", holder.PID, os.Getpid())
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); !os.IsNotExist(err) {
		t.Error("lock file still present after release")
	}
	if _, held := Holder(dir); held {
		t.Error("Holder reported locked after release")
	}
}

func TestAcquireReentrant(t *testing.T) {
	dir := t.TempDir()

	first, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("first Acquire failed: %v", err)
	}

	second, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("re-acquire by same process failed: %v", err)
	}
	if second.PID != first.PID {
		t.Errorf("second PID = %d, want %d", second.PID, first.PID)
	}

	if err := first.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestAcquireLockedByOtherProcess(t *testing.T) {
	dir := t.TempDir()

	// The parent process is alive and is not the test process, so the
	// lock reads as held by a live foreign process.
	writeLockFile(t, dir, os.Getppid(), "otherhost")

	_, err := Acquire(dir, nil)
	if err == nil {
		t.Fatal("Acquire succeeded against a live foreign lock")
	}
	if !errors.Is(err, ErrLocked) {
		t.Errorf("error = %v, want ErrLocked", err)
	}
}

func TestAcquireCleansStaleLock(t *testing.T) {
	dir := t.TempDir()

	// PIDs near the kernel maximum are never in use in practice.
	writeLockFile(t, dir, 1<<30, "deadhost")

	lock, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("Acquire over stale lock failed: %v", err)
	}
	if lock.PID != os.Getpid() {
		t.Errorf("lock PID = %d, want %d", lock.PID, os.Getpid())
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
}

func TestReleaseDoesNotRemoveForeignLock(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Simulate another process overwriting the lock file.
	writeLockFile(t, dir, os.Getppid(), "otherhost")

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, LockFileName)); err != nil {
		t.Error("Release removed a lock owned by another process")
	}
}

func TestReleaseIdempotent(t *testing.T) {
	dir := t.TempDir()

	lock, err := Acquire(dir, nil)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("first Release failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release failed: %v", err)
	}

	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Fatalf("nil Release failed: %v", err)
	}
}

func TestHolderNoLock(t *testing.T) {
	dir := t.TempDir()
	if holder, held := Holder(dir); held || holder != nil {
		t.Error("Holder reported a lock in an empty directory")
	}
}

func writeLockFile(t *testing.T, dir string, pid int, hostname string) {
	t.Helper()
	data, err := json.Marshal(Lock{PID: pid, Hostname: hostname, AcquiredAt: time.Now()})
	if err != nil {
		t.Fatalf("marshal lock: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, LockFileName), data, 0644); err != nil {
		t.Fatalf("write lock file: %v", err)
	}
}
