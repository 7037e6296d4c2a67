package daemon

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa911/datacap/internal/logging"
)

type recordedRunner struct {
	calls []string
	fail  map[string]error
}

func (r *recordedRunner) run(name string, args ...string) error {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	return r.fail[call]
}

func newTestInstaller(t *testing.T, goos string) (*Installer, *recordedRunner) {
	t.Helper()
	dir := t.TempDir()
	runner := &recordedRunner{fail: map[string]error{}}
	inst := &Installer{
		ExecutablePath: "/usr/local/bin/datacap",
		GOOS:           goos,
		SystemdDir:     filepath.Join(dir, "systemd"),
		SystemdLogDir:  filepath.Join(dir, "log"),
		HomeDir:        filepath.Join(dir, "home"),
		logger:         logging.NewDiscardLogger(),
	}
	return inst.WithRunner(runner.run), runner
}

func TestInstallerLinux(t *testing.T) {
	inst, runner := newTestInstaller(t, "linux")

	require.NoError(t, inst.Install())

	unitPath, err := inst.UnitPath()
	require.NoError(t, err)
	content, err := os.ReadFile(unitPath)
	require.NoError(t, err)

	assert.Contains(t, string(content), "ExecStart=/usr/local/bin/datacap run")
	assert.Contains(t, string(content), "WantedBy=multi-user.target")
	assert.Contains(t, string(content), "Environment=DATACAP_IS_SERVICE=1")
	assert.Equal(t, []string{"systemctl daemon-reload", "systemctl enable --now datacap"}, runner.calls)

	require.NoError(t, inst.Uninstall())
	assert.NoFileExists(t, unitPath)
}

func TestInstallerLinuxReloadFailure(t *testing.T) {
	inst, runner := newTestInstaller(t, "linux")
	runner.fail["systemctl daemon-reload"] = errors.New("exit status 1")

	err := inst.Install()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to reload systemd daemon")
}

func TestInstallerDarwin(t *testing.T) {
	inst, runner := newTestInstaller(t, "darwin")

	require.NoError(t, inst.Install())

	plistPath, err := inst.UnitPath()
	require.NoError(t, err)
	content, err := os.ReadFile(plistPath)
	require.NoError(t, err)

	assert.Contains(t, string(content), "<string>com.datacap.daemon</string>")
	assert.Contains(t, string(content), "<string>/usr/local/bin/datacap</string>")
	assert.Equal(t, []string{"launchctl load " + plistPath}, runner.calls)

	require.NoError(t, inst.Uninstall())
	assert.NoFileExists(t, plistPath)
}

func TestInstallerUnsupported(t *testing.T) {
	inst, _ := newTestInstaller(t, "plan9")

	assert.True(t, errors.Is(inst.Install(), ErrUnsupportedSystem))
	assert.True(t, errors.Is(inst.Uninstall(), ErrUnsupportedSystem))
}
