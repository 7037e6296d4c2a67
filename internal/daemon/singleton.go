package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/osa911/datacap/internal/logging"
)

// DefaultPidFile is the lock file used when no path is configured
const DefaultPidFile = "~/.datacap/datacap.pid"

// SingletonManager prevents two daemons from enforcing on the same host
type SingletonManager struct {
	PidFile  string
	lockFile *os.File
	logger   *logging.Logger
}

// NewSingletonManager creates a manager for pidFile, falling back to the
// temp dir when the home directory cannot be resolved.
func NewSingletonManager(pidFile string) (*SingletonManager, error) {
	if pidFile == "" {
		pidFile = DefaultPidFile
	}

	path, err := logging.ExpandHome(pidFile)
	if err != nil {
		fallbackDir := filepath.Join(os.TempDir(), "datacap")
		if mkErr := os.MkdirAll(fallbackDir, 0755); mkErr != nil {
			return nil, fmt.Errorf("failed to resolve pid directory: %w", err)
		}
		path = filepath.Join(fallbackDir, filepath.Base(pidFile))
	}

	return &SingletonManager{
		PidFile: path,
		logger:  logging.GetGlobalLogger(),
	}, nil
}

// AcquireLock takes the advisory lock and writes the current pid into the file
func (sm *SingletonManager) AcquireLock() error {
	if err := os.MkdirAll(filepath.Dir(sm.PidFile), 0755); err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	file, err := os.OpenFile(sm.PidFile, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return fmt.Errorf("failed to open pid file: %w", err)
	}

	if err := lockFile(file); err != nil {
		file.Close()
		if isLockContended(err) {
			return fmt.Errorf("%w (PID: %d). Use 'datacap service status' to check the service", ErrAlreadyRunning, sm.getPIDFromFile())
		}
		return fmt.Errorf("failed to acquire advisory lock: %w", err)
	}

	// The handle stays open for the lifetime of the lock
	sm.lockFile = file

	pid := os.Getpid()
	if err := file.Truncate(0); err != nil {
		sm.logger.Warn("Failed to truncate pid file: %v", err)
	}
	if _, err := file.Seek(0, 0); err != nil {
		sm.logger.Warn("Failed to seek pid file: %v", err)
	}
	if _, err := fmt.Fprintf(file, "%d\n", pid); err != nil {
		sm.logger.Warn("Failed to write to pid file: %v", err)
	}

	sm.logger.Debug("Acquired singleton lock (PID: %d)", pid)
	return nil
}

// ReleaseLock drops the lock and removes the pid file
func (sm *SingletonManager) ReleaseLock() error {
	if sm.lockFile == nil {
		return nil
	}

	_ = unlockFile(sm.lockFile)
	_ = sm.lockFile.Close()
	sm.lockFile = nil

	if err := os.Remove(sm.PidFile); err != nil && !os.IsNotExist(err) {
		sm.logger.Warn("Failed to remove pid file on release: %v", err)
	}

	sm.logger.Debug("Released singleton lock")
	return nil
}

// IsRunning reports whether some process currently holds the lock
func (sm *SingletonManager) IsRunning() bool {
	if sm.lockFile != nil {
		return true
	}
	_ = sm.CleanupStaleLock()

	file, err := os.OpenFile(sm.PidFile, os.O_RDWR, 0644)
	if err != nil {
		return !os.IsNotExist(err)
	}
	defer file.Close()

	if err := lockFile(file); err == nil {
		_ = unlockFile(file)
		return false
	}
	return true
}

// GetRunningPID returns the pid of the lock holder, or 0
func (sm *SingletonManager) GetRunningPID() int {
	if !sm.IsRunning() {
		return 0
	}
	return sm.getPIDFromFile()
}

func (sm *SingletonManager) getPIDFromFile() int {
	data, err := os.ReadFile(sm.PidFile)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

// CleanupStaleLock removes a pid file nobody holds a kernel lock on
func (sm *SingletonManager) CleanupStaleLock() error {
	file, err := os.OpenFile(sm.PidFile, os.O_RDWR, 0644)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	if err := lockFile(file); err == nil {
		_ = unlockFile(file)
		_ = os.Remove(sm.PidFile)
		sm.logger.Debug("Cleaned up stale lock file")
	}
	return nil
}

// WaitForLock polls until the lock is free or timeout passes
func (sm *SingletonManager) WaitForLock(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !sm.IsRunning() {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("timeout waiting for daemon lock to become available")
}
