// Package filelock provides an advisory cross-process lock on a
// session directory. Protocol commands are short-lived processes that
// all read and append to the same state file and transcript, so each
// acquires the lock at startup and releases it on exit. Locks left by
// dead processes are treated as stale and cleaned automatically.
package filelock

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Iron-Ham/tribunal/internal/logging"
)

// LockFileName is the name of the lock file within a session directory.
const LockFileName = "tribunal.lock"

// ErrLocked is returned when the session is in use by another process.
var ErrLocked = errors.New("session is locked by another process")

// Lock represents an acquired session lock.
type Lock struct {
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`

	path   string
	logger *logging.Logger
}

// Acquire takes an exclusive advisory lock on the session directory.
// A lock already held by this process is returned as-is, so a command
// may construct several views over the same session. Returns ErrLocked
// if another live process holds the lock. The logger may be nil.
func Acquire(sessionDir string, logger *logging.Logger) (*Lock, error) {
	if err := os.MkdirAll(sessionDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	lockPath := filepath.Join(sessionDir, LockFileName)

	if existing, err := read(lockPath); err == nil {
		if existing.PID == os.Getpid() {
			existing.logger = logger
			return existing, nil
		}
		if isProcessAlive(existing.PID) {
			return nil, fmt.Errorf("%w: PID %d on %s", ErrLocked, existing.PID, existing.Hostname)
		}
		// Stale lock from a dead process
		oldPID := existing.PID
		if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to remove stale lock: %w", err)
		}
		if logger != nil {
			logger.Warn("stale lock cleaned", "old_pid", oldPID)
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
		path:       lockPath,
		logger:     logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL fails if another process created the file between the
	// read above and now.
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if os.IsExist(err) {
			if existing, readErr := read(lockPath); readErr == nil {
				return nil, fmt.Errorf("%w: PID %d on %s", ErrLocked, existing.PID, existing.Hostname)
			}
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	if logger != nil {
		logger.Debug("session lock acquired", "pid", lock.PID)
	}
	return lock, nil
}

// Release removes the lock file if this process owns it.
// Safe to call multiple times.
func (l *Lock) Release() error {
	if l == nil || l.path == "" {
		return nil
	}

	existing, err := read(l.path)
	if err != nil {
		// Already gone
		return nil
	}
	if existing.PID != l.PID {
		return nil
	}

	if err := os.Remove(l.path); err != nil {
		return err
	}
	if l.logger != nil {
		l.logger.Debug("session lock released", "pid", l.PID)
	}
	return nil
}

// Holder reports whether the session directory is locked by a live
// process, and by whom.
func Holder(sessionDir string) (*Lock, bool) {
	lock, err := read(filepath.Join(sessionDir, LockFileName))
	if err != nil {
		return nil, false
	}
	if !isProcessAlive(lock.PID) {
		return lock, false
	}
	return lock, true
}

func read(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}
	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.path = lockPath
	return &lock, nil
}

// isProcessAlive checks whether a process with the given PID exists.
func isProcessAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 probes for existence without side effects.
	return process.Signal(syscall.Signal(0)) == nil
}
