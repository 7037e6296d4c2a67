package service

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// MMCLIDialer talks to ModemManager through the mmcli tool
type MMCLIDialer struct {
	modem string
	run   func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewMMCLIDialer creates a dialer for modem ("any" picks the first one)
func NewMMCLIDialer(modem string) *MMCLIDialer {
	return &MMCLIDialer{
		modem: modem,
		run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
			return exec.CommandContext(ctx, name, args...).CombinedOutput()
		},
	}
}

// CanDial checks that ModemManager knows at least one modem
func (d *MMCLIDialer) CanDial(ctx context.Context) error {
	out, err := d.run(ctx, "mmcli", "-L")
	if err != nil {
		return fmt.Errorf("%w: mmcli -L: %v", ErrNoModem, err)
	}
	if !strings.Contains(string(out), "/Modem/") {
		return ErrNoModem
	}
	return nil
}

// Dial starts a USSD session with code and returns the network reply
func (d *MMCLIDialer) Dial(ctx context.Context, code string) (string, error) {
	out, err := d.run(ctx, "mmcli", "-m", d.modem, "--3gpp-ussd-initiate="+code)
	if err != nil {
		return "", fmt.Errorf("mmcli ussd: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return parseUSSDReply(string(out)), nil
}

// parseUSSDReply extracts the text after "new reply from network:"
func parseUSSDReply(out string) string {
	const marker = "new reply from network:"
	if i := strings.Index(out, marker); i >= 0 {
		reply := strings.TrimSpace(out[i+len(marker):])
		return strings.Trim(reply, "'")
	}
	return strings.TrimSpace(out)
}
