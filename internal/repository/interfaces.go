package repository

import (
	"context"
	"time"

	"github.com/osa911/datacap/internal/models"
)

// QuotaRepository defines the operations on the single quota record
type QuotaRepository interface {
	// Watch streams the quota record, starting with the current value (nil when absent)
	Watch(ctx context.Context) <-chan *models.Quota
	// GetOnce returns the quota record or nil when none was saved yet
	GetOnce(ctx context.Context) (*models.Quota, error)
	// Save overwrites the quota record
	Save(ctx context.Context, quota models.Quota) error
	// UpdateEnabled toggles enforcement without touching limit or expiry
	UpdateEnabled(ctx context.Context, enabled bool) error
	// Refresh re-reads the record and publishes it to watchers
	Refresh(ctx context.Context) error
}

// UsageRepository defines the operations on the single usage record
type UsageRepository interface {
	// Watch streams the usage record, starting with the current value (nil when absent)
	Watch(ctx context.Context) <-chan *models.Usage
	// GetOnce returns the usage record or nil when it does not exist
	GetOnce(ctx context.Context) (*models.Usage, error)
	// Insert overwrites the usage record
	Insert(ctx context.Context, usage models.Usage) error
	// Initialize creates the record (0 bytes, reset at now) if it is absent and returns it
	Initialize(ctx context.Context, nowMs int64) (*models.Usage, error)
	// UpdateUsage sets the byte total
	UpdateUsage(ctx context.Context, bytes uint64) error
	// UpdateUsageSince raises the byte total to bytes unless the record was reset
	// after resetTimeMs was read. It reports whether the record matched.
	UpdateUsageSince(ctx context.Context, resetTimeMs int64, bytes uint64) (bool, error)
	// ResetUsage sets the byte total to 0 and the reset time to timestampMs
	ResetUsage(ctx context.Context, timestampMs int64) error
}

// TrafficRepository defines the operations on per-interface traffic buckets
type TrafficRepository interface {
	// AddBytes adds rx/tx to the bucket of iface starting at bucketStart
	AddBytes(ctx context.Context, iface string, bucketStart time.Time, rx, tx uint64) error
	// SumSince sums rx+tx of every bucket overlapping [sinceMs, now)
	SumSince(ctx context.Context, sinceMs int64, width time.Duration) (uint64, error)
	// DeleteOlderThan removes buckets that started before cutoff
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
