//go:build linux

package sinkhole

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/osa911/datacap/internal/logging"
)

const tunDevice = "/dev/net/tun"

// Routes covering the whole address space. Two halves are more specific than
// the default route, so they win without the default route being touched.
var (
	ipv4Routes = []string{"0.0.0.0/1", "128.0.0.0/1"}
	ipv6Routes = []string{"::/1", "8000::/1"}
)

// TUN is a Linux TUN device that swallows every packet routed to it
type TUN struct {
	mu      sync.Mutex
	cfg     Config
	run     CommandRunner
	file    *os.File
	name    string
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64
	logger  *logging.Logger
}

// NewTUN creates a TUN sinkhole. Nothing is opened until Establish.
func NewTUN(cfg Config, run CommandRunner) *TUN {
	return &TUN{
		cfg:    cfg,
		run:    run,
		logger: logging.GetGlobalLogger(),
	}
}

// Establish creates the interface, routes all traffic into it and starts draining it
func (t *TUN) Establish(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file != nil {
		return nil
	}

	fd, err := unix.Open(tunDevice, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return logging.WrapError(logging.ErrSinkhole, fmt.Sprintf("failed to open %s: %v", tunDevice, err))
	}

	ifr, err := unix.NewIfreq(t.cfg.Name)
	if err != nil {
		unix.Close(fd)
		return logging.WrapError(logging.ErrSinkhole, fmt.Sprintf("invalid interface name %q: %v", t.cfg.Name, err))
	}
	ifr.SetUint16(unix.IFF_TUN | unix.IFF_NO_PI)
	if err := unix.IoctlIfreq(fd, unix.TUNSETIFF, ifr); err != nil {
		unix.Close(fd)
		return logging.WrapError(logging.ErrSinkhole, fmt.Sprintf("TUNSETIFF failed: %v", err))
	}

	// A non-blocking fd makes the file pollable, so Close unblocks the drain
	file := os.NewFile(uintptr(fd), tunDevice)
	name := ifr.Name()

	if err := t.configure(ctx, name); err != nil {
		file.Close()
		return logging.WrapError(logging.ErrSinkhole, err.Error())
	}

	t.file = file
	t.name = name
	t.done = make(chan struct{})
	t.wg.Add(1)
	go t.drain(file, t.done)

	t.logger.Info("Sinkhole %s established (%s), all traffic is now dropped", name, t.cfg.Address)
	return nil
}

func (t *TUN) configure(ctx context.Context, name string) error {
	steps := [][]string{
		{"addr", "add", t.cfg.Address, "dev", name},
		{"link", "set", "dev", name, "mtu", strconv.Itoa(t.cfg.MTU), "up"},
	}
	for _, route := range ipv4Routes {
		steps = append(steps, []string{"route", "add", route, "dev", name})
	}

	for _, args := range steps {
		if err := t.run(ctx, "ip", args...); err != nil {
			return err
		}
	}

	for _, route := range ipv6Routes {
		if err := t.run(ctx, "ip", "-6", "route", "add", route, "dev", name); err != nil {
			t.logger.Warn("Failed to route IPv6 %s into sinkhole: %v", route, err)
		}
	}
	return nil
}

func (t *TUN) drain(file *os.File, done <-chan struct{}) {
	defer t.wg.Done()

	buf := make([]byte, t.cfg.MTU+64)
	for {
		_, err := file.Read(buf)
		if err == nil {
			t.dropped.Add(1)
			continue
		}
		if errors.Is(err, os.ErrClosed) {
			return
		}
		select {
		case <-done:
			return
		default:
		}
		t.logger.Debug("Sinkhole read error: %v", err)
		time.Sleep(100 * time.Millisecond)
	}
}

// Teardown closes the device. The kernel removes the link and its routes with it.
func (t *TUN) Teardown() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil {
		return nil
	}

	close(t.done)
	err := t.file.Close()
	t.wg.Wait()

	t.file = nil
	t.done = nil
	if err != nil {
		return logging.WrapError(logging.ErrSinkhole, fmt.Sprintf("failed to close %s: %v", t.name, err))
	}

	t.logger.Info("Sinkhole %s torn down", t.name)
	return nil
}

// Active reports whether the device is open
func (t *TUN) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.file != nil
}

// DroppedPackets is the number of packets read and discarded
func (t *TUN) DroppedPackets() uint64 {
	return t.dropped.Load()
}
