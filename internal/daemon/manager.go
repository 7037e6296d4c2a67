package daemon

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ServiceManager controls an installed daemon
type ServiceManager interface {
	IsRunning() (bool, error)
	Start() error
	Stop() error
	Restart() error
	Reload() error
}

// NewDefaultServiceManager returns a systemd manager on Linux and a no-op elsewhere.
func NewDefaultServiceManager() ServiceManager {
	if runtime.GOOS == "linux" {
		return NewSystemdServiceManager(UnitName)
	}
	return &noopServiceManager{}
}

type noopServiceManager struct{}

func (n *noopServiceManager) IsRunning() (bool, error) { return false, nil }
func (n *noopServiceManager) Start() error             { return nil }
func (n *noopServiceManager) Stop() error              { return nil }
func (n *noopServiceManager) Restart() error           { return nil }
func (n *noopServiceManager) Reload() error            { return nil }

// SystemdServiceManager manages a systemd unit
type SystemdServiceManager struct {
	unitName string
	command  func(name string, args ...string) *exec.Cmd
}

// NewSystemdServiceManager accepts a service name or a full unit name
func NewSystemdServiceManager(unit string) *SystemdServiceManager {
	if unit == "" {
		unit = UnitName
	}
	if !strings.HasSuffix(unit, ".service") {
		unit += ".service"
	}
	return &SystemdServiceManager{unitName: unit, command: exec.Command}
}

func (m *SystemdServiceManager) IsRunning() (bool, error) {
	if err := m.command("systemctl", "is-active", "--quiet", m.unitName).Run(); err != nil {
		// Non-zero exit means not active
		return false, nil
	}
	return true, nil
}

func (m *SystemdServiceManager) Start() error   { return m.systemctl("start") }
func (m *SystemdServiceManager) Stop() error    { return m.systemctl("stop") }
func (m *SystemdServiceManager) Restart() error { return m.systemctl("restart") }

// Reload sends SIGHUP through ExecReload, which restarts the engine in place
func (m *SystemdServiceManager) Reload() error { return m.systemctl("reload") }

func (m *SystemdServiceManager) systemctl(verb string) error {
	cmd := m.command("sudo", "systemctl", verb, m.unitName)
	var stderr bytes.Buffer
	cmd.Stdin = os.Stdin // sudo may prompt
	cmd.Stdout = os.Stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 5 { // systemd: unit not found
			return ErrServiceNotFound
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("failed to %s service: %s", verb, msg)
		}
		return fmt.Errorf("failed to %s service: %w", verb, err)
	}
	return nil
}

func (m *SystemdServiceManager) String() string {
	return fmt.Sprintf("systemd unit %s", m.unitName)
}
