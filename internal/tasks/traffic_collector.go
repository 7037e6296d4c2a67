package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/repository"
)

// DefaultSysClassNet is where Linux exposes per-interface counters
const DefaultSysClassNet = "/sys/class/net"

type ifaceCounters struct {
	rx uint64
	tx uint64
}

// TrafficCollector periodically turns interface counters into traffic buckets
type TrafficCollector struct {
	repo     repository.TrafficRepository
	root     string
	patterns []string
	interval time.Duration
	width    time.Duration
	now      func() time.Time

	prev map[string]ifaceCounters
	done chan struct{}
	wg   sync.WaitGroup
}

// CollectorConfig configures a TrafficCollector
type CollectorConfig struct {
	// Root overrides DefaultSysClassNet
	Root       string
	Interfaces []string
	Interval   time.Duration
	Width      time.Duration
}

// NewTrafficCollector creates a new traffic collector task
func NewTrafficCollector(repo repository.TrafficRepository, cfg CollectorConfig) *TrafficCollector {
	root := cfg.Root
	if root == "" {
		root = DefaultSysClassNet
	}
	return &TrafficCollector{
		repo:     repo,
		root:     root,
		patterns: cfg.Interfaces,
		interval: cfg.Interval,
		width:    cfg.Width,
		now:      time.Now,
		prev:     make(map[string]ifaceCounters),
		done:     make(chan struct{}),
	}
}

// Start begins collecting in the background
func (tc *TrafficCollector) Start() {
	tc.wg.Add(1)
	go tc.runPeriodically()
}

// Stop gracefully stops the collector
func (tc *TrafficCollector) Stop() {
	close(tc.done)
	tc.wg.Wait()
}

func (tc *TrafficCollector) runPeriodically() {
	defer tc.wg.Done()
	logger := logging.GetGlobalLogger()

	logger.Info("Starting traffic collector for %s", strings.Join(tc.patterns, ","))

	// Take the baseline immediately
	if err := tc.Collect(context.Background()); err != nil {
		logger.Error("Traffic collection failed: %v", err)
	}

	ticker := time.NewTicker(tc.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := tc.Collect(context.Background()); err != nil {
				logger.Error("Traffic collection failed: %v", err)
			}
		case <-tc.done:
			logger.Info("Traffic collector stopped")
			return
		}
	}
}

// Collect reads every matching interface once and records the deltas.
// The first reading of an interface only sets its baseline. A counter that
// went backwards (interface re-created, driver reset) restarts from zero.
func (tc *TrafficCollector) Collect(ctx context.Context) error {
	ifaces, err := tc.matchInterfaces()
	if err != nil {
		return err
	}

	bucket := tc.now().Truncate(tc.width)
	seen := make(map[string]bool, len(ifaces))
	var firstErr error

	for _, iface := range ifaces {
		cur, err := tc.read(iface)
		if err != nil {
			logging.GetGlobalLogger().Debug("Skipping %s: %v", iface, err)
			continue
		}
		seen[iface] = true

		prev, known := tc.prev[iface]
		tc.prev[iface] = cur
		if !known {
			continue
		}

		rx := delta(prev.rx, cur.rx)
		tx := delta(prev.tx, cur.tx)
		if rx == 0 && tx == 0 {
			continue
		}

		if err := tc.repo.AddBytes(ctx, iface, bucket, rx, tx); err != nil {
			// Keep the old baseline so the bytes are retried next tick
			tc.prev[iface] = prev
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	for iface := range tc.prev {
		if !seen[iface] {
			delete(tc.prev, iface)
		}
	}

	return firstErr
}

func (tc *TrafficCollector) matchInterfaces() ([]string, error) {
	found := make(map[string]bool)
	var ifaces []string
	for _, pattern := range tc.patterns {
		matches, err := filepath.Glob(filepath.Join(tc.root, pattern))
		if err != nil {
			return nil, fmt.Errorf("invalid interface pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			name := filepath.Base(m)
			if !found[name] {
				found[name] = true
				ifaces = append(ifaces, name)
			}
		}
	}
	return ifaces, nil
}

func (tc *TrafficCollector) read(iface string) (ifaceCounters, error) {
	rx, err := readCounter(filepath.Join(tc.root, iface, "statistics", "rx_bytes"))
	if err != nil {
		return ifaceCounters{}, err
	}
	tx, err := readCounter(filepath.Join(tc.root, iface, "statistics", "tx_bytes"))
	if err != nil {
		return ifaceCounters{}, err
	}
	return ifaceCounters{rx: rx, tx: tx}, nil
}

func readCounter(path string) (uint64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return v, nil
}

func delta(prev, cur uint64) uint64 {
	if cur < prev {
		return cur
	}
	return cur - prev
}
