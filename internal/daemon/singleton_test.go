package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSingleton(t *testing.T) *SingletonManager {
	t.Helper()
	sm, err := NewSingletonManager(filepath.Join(t.TempDir(), "run", "datacap.pid"))
	require.NoError(t, err)
	return sm
}

func TestSingletonManager_BasicFunctionality(t *testing.T) {
	sm := newTestSingleton(t)

	assert.False(t, sm.IsRunning())

	require.NoError(t, sm.AcquireLock())
	assert.True(t, sm.IsRunning())
	assert.Equal(t, os.Getpid(), sm.GetRunningPID())

	other := &SingletonManager{PidFile: sm.PidFile, logger: sm.logger}
	err := other.AcquireLock()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyRunning))
	assert.True(t, other.IsRunning())

	require.NoError(t, sm.ReleaseLock())
	assert.False(t, sm.IsRunning())
	assert.NoFileExists(t, sm.PidFile)

	// Releasing twice is harmless
	require.NoError(t, sm.ReleaseLock())
}

func TestSingletonManager_StaleLockCleanup(t *testing.T) {
	sm := newTestSingleton(t)

	require.NoError(t, os.MkdirAll(filepath.Dir(sm.PidFile), 0755))
	require.NoError(t, os.WriteFile(sm.PidFile, []byte(strconv.Itoa(999999)+"\n"), 0644))

	require.NoError(t, sm.CleanupStaleLock())
	assert.NoFileExists(t, sm.PidFile)
	assert.Equal(t, 0, sm.GetRunningPID())

	require.NoError(t, sm.AcquireLock())
	defer sm.ReleaseLock()
}

func TestSingletonManager_WaitForLock(t *testing.T) {
	sm := newTestSingleton(t)
	require.NoError(t, sm.AcquireLock())

	other := &SingletonManager{PidFile: sm.PidFile, logger: sm.logger}
	assert.Error(t, other.WaitForLock(200*time.Millisecond))

	go func() {
		time.Sleep(100 * time.Millisecond)
		_ = sm.ReleaseLock()
	}()
	assert.NoError(t, other.WaitForLock(2*time.Second))
}

func TestNewSingletonManagerDefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	sm, err := NewSingletonManager("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".datacap", "datacap.pid"), sm.PidFile)
}
