package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"text/template"

	"github.com/osa911/datacap/internal/logging"
)

const (
	// UnitName is the systemd unit and launchd label suffix
	UnitName     = "datacap"
	launchdLabel = "com.datacap.daemon"
)

// Runner executes an external command
type Runner func(name string, args ...string) error

func execRunner(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

var systemdUnit = template.Must(template.New("unit").Parse(`[Unit]
Description=datacap quota enforcement daemon
After=network-online.target ModemManager.service
Wants=network-online.target

[Service]
Type=simple
ExecStart={{.Executable}} run
ExecReload=/bin/kill -HUP $MAINPID
Restart=always
RestartSec=10
Environment=DATACAP_IS_SERVICE=1
AmbientCapabilities=CAP_NET_ADMIN
StandardOutput=append:{{.LogDir}}/datacap.log
StandardError=append:{{.LogDir}}/datacap.log

[Install]
WantedBy=multi-user.target
`))

var launchdPlist = template.Must(template.New("plist").Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{.Executable}}</string>
        <string>run</string>
    </array>
    <key>EnvironmentVariables</key>
    <dict>
        <key>DATACAP_IS_SERVICE</key>
        <string>1</string>
    </dict>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <true/>
    <key>StandardErrorPath</key>
    <string>{{.LogDir}}/datacap.log</string>
    <key>StandardOutPath</key>
    <string>{{.LogDir}}/datacap.log</string>
</dict>
</plist>
`))

type unitData struct {
	Executable string
	LogDir     string
	Label      string
}

// Installer registers the daemon with the host init system so it starts at boot
type Installer struct {
	ExecutablePath string
	GOOS           string
	SystemdDir     string
	SystemdLogDir  string
	HomeDir        string
	run            Runner
	logger         *logging.Logger
}

// NewInstaller creates an installer for the running executable
func NewInstaller() (*Installer, error) {
	logger := logging.GetGlobalLogger()

	executablePath, err := os.Executable()
	if err != nil {
		logger.Error("Failed to get executable path: %v", err)
		return nil, fmt.Errorf("failed to get executable path: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}

	return &Installer{
		ExecutablePath: executablePath,
		GOOS:           runtime.GOOS,
		SystemdDir:     "/etc/systemd/system",
		SystemdLogDir:  "/var/log/datacap",
		HomeDir:        homeDir,
		run:            execRunner,
		logger:         logger,
	}, nil
}

// WithRunner replaces the command runner
func (i *Installer) WithRunner(r Runner) *Installer {
	i.run = r
	return i
}

// UnitPath is where the unit or agent definition is written
func (i *Installer) UnitPath() (string, error) {
	switch i.GOOS {
	case "linux":
		return filepath.Join(i.SystemdDir, UnitName+".service"), nil
	case "darwin":
		return filepath.Join(i.HomeDir, "Library/LaunchAgents", launchdLabel+".plist"), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedSystem, i.GOOS)
	}
}

func (i *Installer) Install() error {
	i.logger.Info("Installing service for OS: %s", i.GOOS)

	switch i.GOOS {
	case "linux":
		return i.installLinux()
	case "darwin":
		return i.installDarwin()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSystem, i.GOOS)
	}
}

func (i *Installer) Uninstall() error {
	i.logger.Info("Uninstalling service for OS: %s", i.GOOS)

	switch i.GOOS {
	case "linux":
		return i.uninstallLinux()
	case "darwin":
		return i.uninstallDarwin()
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedSystem, i.GOOS)
	}
}

func (i *Installer) installLinux() error {
	if err := os.MkdirAll(i.SystemdLogDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	unitPath, _ := i.UnitPath()
	if err := i.writeTemplate(unitPath, systemdUnit, unitData{Executable: i.ExecutablePath, LogDir: i.SystemdLogDir}); err != nil {
		return err
	}

	i.logger.Info("Reloading systemd daemon")
	if err := i.run("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd daemon: %w", err)
	}
	if err := i.run("systemctl", "enable", "--now", UnitName); err != nil {
		return fmt.Errorf("failed to enable service: %w", err)
	}

	i.logger.Info("Service installed successfully")
	return nil
}

func (i *Installer) uninstallLinux() error {
	if err := i.run("systemctl", "disable", "--now", UnitName); err != nil {
		i.logger.Warn("Failed to disable service: %v", err)
	}

	unitPath, _ := i.UnitPath()
	if err := os.Remove(unitPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove service file: %w", err)
	}

	if err := i.run("systemctl", "daemon-reload"); err != nil {
		return fmt.Errorf("failed to reload systemd daemon: %w", err)
	}

	i.logger.Info("Service uninstalled successfully")
	return nil
}

func (i *Installer) installDarwin() error {
	logDir := filepath.Join(i.HomeDir, ".datacap")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	plistPath, _ := i.UnitPath()
	data := unitData{Executable: i.ExecutablePath, LogDir: logDir, Label: launchdLabel}
	if err := i.writeTemplate(plistPath, launchdPlist, data); err != nil {
		return err
	}

	i.logger.Info("Loading LaunchAgent service")
	if err := i.run("launchctl", "load", plistPath); err != nil {
		return fmt.Errorf("failed to load service: %w", err)
	}

	i.logger.Info("Service installed successfully")
	return nil
}

func (i *Installer) uninstallDarwin() error {
	plistPath, _ := i.UnitPath()
	if err := i.run("launchctl", "unload", plistPath); err != nil {
		i.logger.Warn("Failed to unload service: %v", err)
	}
	if err := os.Remove(plistPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove plist file: %w", err)
	}

	i.logger.Info("Service uninstalled successfully")
	return nil
}

func (i *Installer) writeTemplate(path string, tmpl *template.Template, data unitData) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	defer f.Close()

	i.logger.Info("Writing service definition to: %s", path)
	if err := tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return nil
}

// IsService reports whether the process was started by the init system
func IsService() bool {
	return os.Getenv("DATACAP_IS_SERVICE") == "1"
}
