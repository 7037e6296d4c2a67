package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/osa911/datacap/internal/broadcast"
	"github.com/osa911/datacap/internal/logging"
	"github.com/osa911/datacap/internal/models"
)

type usageRepository struct {
	db      *sqlx.DB
	changes *broadcast.Broadcaster[*models.Usage]
	// mu orders write, read-back and publish so watchers never see an older row last
	mu sync.Mutex
}

// NewUsageRepository creates a new usage repository instance
func NewUsageRepository(db *sqlx.DB) UsageRepository {
	return &usageRepository{
		db:      db,
		changes: broadcast.New[*models.Usage](),
	}
}

// Watch streams the usage record
func (r *usageRepository) Watch(ctx context.Context) <-chan *models.Usage {
	r.mu.Lock()
	if _, ok := r.changes.Latest(); !ok {
		if usage, err := r.GetOnce(ctx); err != nil {
			logging.GetGlobalLogger().Warn("Failed to load usage for watchers: %v", err)
		} else {
			r.changes.Seed(usage)
		}
	}
	r.mu.Unlock()
	return r.changes.Subscribe(ctx)
}

// GetOnce returns the usage record or nil
func (r *usageRepository) GetOnce(ctx context.Context) (*models.Usage, error) {
	var usage models.Usage
	err := r.db.GetContext(ctx, &usage,
		r.db.Rebind(`SELECT total_bytes_used, last_reset_time_ms FROM data_usage WHERE id = ?`),
		models.UsageRecordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get usage: %w", err)
	}
	return &usage, nil
}

// Insert overwrites the usage record
func (r *usageRepository) Insert(ctx context.Context, usage models.Usage) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.upsert(ctx, usage); err != nil {
		return err
	}
	return r.publish(ctx)
}

// Initialize creates the record when it is absent
func (r *usageRepository) Initialize(ctx context.Context, nowMs int64) (*models.Usage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO data_usage (id, total_bytes_used, last_reset_time_ms)
		VALUES (?, 0, ?)
		ON CONFLICT (id) DO NOTHING`),
		models.UsageRecordID, nowMs)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize usage: %w", err)
	}

	usage, err := r.GetOnce(ctx)
	if err != nil {
		return nil, err
	}
	if usage == nil {
		return nil, fmt.Errorf("failed to initialize usage: %w", ErrNotFound)
	}

	if rows, _ := result.RowsAffected(); rows > 0 {
		r.changes.Publish(usage)
	}
	return usage, nil
}

// UpdateUsage sets the byte total
func (r *usageRepository) UpdateUsage(ctx context.Context, bytes uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE data_usage SET total_bytes_used = ? WHERE id = ?`),
		bytes, models.UsageRecordID)
	if err != nil {
		return fmt.Errorf("failed to update usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}

	return r.publish(ctx)
}

// UpdateUsageSince raises the total unless a reset happened in between.
// Watchers are notified either way so time-based expiry is re-evaluated.
func (r *usageRepository) UpdateUsageSince(ctx context.Context, resetTimeMs int64, bytes uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
		UPDATE data_usage
		SET total_bytes_used = CASE WHEN total_bytes_used > ? THEN total_bytes_used ELSE ? END
		WHERE id = ? AND last_reset_time_ms = ?`),
		bytes, bytes, models.UsageRecordID, resetTimeMs)
	if err != nil {
		return false, fmt.Errorf("failed to update usage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	if err := r.publish(ctx); err != nil {
		return false, err
	}
	return rows > 0, nil
}

// ResetUsage zeroes the total at timestampMs
func (r *usageRepository) ResetUsage(ctx context.Context, timestampMs int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.upsert(ctx, models.Usage{TotalBytesUsed: 0, LastResetTimeMs: timestampMs}); err != nil {
		return fmt.Errorf("failed to reset usage: %w", err)
	}
	return r.publish(ctx)
}

func (r *usageRepository) upsert(ctx context.Context, usage models.Usage) error {
	query := r.db.Rebind(`
		INSERT INTO data_usage (id, total_bytes_used, last_reset_time_ms)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			total_bytes_used = excluded.total_bytes_used,
			last_reset_time_ms = excluded.last_reset_time_ms`)

	if _, err := r.db.ExecContext(ctx, query,
		models.UsageRecordID, usage.TotalBytesUsed, usage.LastResetTimeMs); err != nil {
		return fmt.Errorf("failed to save usage: %w", err)
	}
	return nil
}

func (r *usageRepository) publish(ctx context.Context) error {
	usage, err := r.GetOnce(ctx)
	if err != nil {
		return err
	}
	r.changes.Publish(usage)
	return nil
}
