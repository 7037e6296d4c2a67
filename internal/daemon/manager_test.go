package daemon

import (
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func shellExit(code string) func(string, ...string) *exec.Cmd {
	return func(string, ...string) *exec.Cmd {
		return exec.Command("sh", "-c", "exit "+code)
	}
}

func TestNewSystemdServiceManagerUnitName(t *testing.T) {
	assert.Equal(t, "systemd unit datacap.service", NewSystemdServiceManager("").String())
	assert.Equal(t, "systemd unit foo.service", NewSystemdServiceManager("foo").String())
	assert.Equal(t, "systemd unit foo.service", NewSystemdServiceManager("foo.service").String())
}

func TestSystemdServiceManager(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	m := NewSystemdServiceManager(UnitName)

	m.command = shellExit("0")
	running, err := m.IsRunning()
	require.NoError(t, err)
	assert.True(t, running)
	assert.NoError(t, m.Restart())

	m.command = shellExit("3")
	running, err = m.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)

	m.command = shellExit("5")
	assert.True(t, errors.Is(m.Start(), ErrServiceNotFound))

	m.command = shellExit("1")
	err = m.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to stop service")
}

func TestNoopServiceManager(t *testing.T) {
	m := &noopServiceManager{}
	running, err := m.IsRunning()
	require.NoError(t, err)
	assert.False(t, running)
	assert.NoError(t, m.Reload())
}
