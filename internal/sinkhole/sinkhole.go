// Package sinkhole owns the virtual network endpoint used to cut connectivity.
package sinkhole

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/osa911/datacap/internal/logging"
)

// ErrUnsupported is returned by Establish on platforms without TUN support
var ErrUnsupported = errors.New("sinkhole not supported on this platform")

// Modes accepted by New
const (
	ModeTUN    = "tun"
	ModeDryRun = "dryrun"
)

// Sinkhole captures and discards all routed traffic while established.
// Implementations are not required to be safe for concurrent Establish/Teardown.
type Sinkhole interface {
	// Establish brings the sinkhole up. It is a no-op when already established.
	Establish(ctx context.Context) error
	// Teardown releases the sinkhole. It is a no-op when not established.
	Teardown() error
	// Active reports whether the sinkhole is established
	Active() bool
	// DroppedPackets is the number of packets captured so far
	DroppedPackets() uint64
}

// Config describes the sinkhole interface
type Config struct {
	Name    string
	Address string
	MTU     int
}

// CommandRunner runs an external network configuration command
type CommandRunner func(ctx context.Context, name string, args ...string) error

// ExecRunner runs commands with os/exec and includes their output in errors
func ExecRunner(ctx context.Context, name string, args ...string) error {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// New creates the sinkhole selected by mode
func New(mode string, cfg Config) (Sinkhole, error) {
	switch mode {
	case ModeTUN:
		return NewTUN(cfg, ExecRunner), nil
	case ModeDryRun:
		return NewDryRun(cfg.Name), nil
	default:
		return nil, fmt.Errorf("unknown sinkhole mode: %s", mode)
	}
}

// DryRun tracks state without touching the network. Useful on hosts without CAP_NET_ADMIN.
type DryRun struct {
	mu     sync.Mutex
	name   string
	active bool
	logger *logging.Logger
}

// NewDryRun creates a dry-run sinkhole
func NewDryRun(name string) *DryRun {
	return &DryRun{name: name, logger: logging.GetGlobalLogger()}
}

func (d *DryRun) Establish(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active {
		return nil
	}
	d.active = true
	d.logger.Warn("[dry-run] Sinkhole %s established, traffic would now be dropped", d.name)
	return nil
}

func (d *DryRun) Teardown() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.active {
		return nil
	}
	d.active = false
	d.logger.Info("[dry-run] Sinkhole %s torn down", d.name)
	return nil
}

func (d *DryRun) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *DryRun) DroppedPackets() uint64 { return 0 }
