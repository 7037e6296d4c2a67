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

type quotaRepository struct {
	db      *sqlx.DB
	changes *broadcast.Broadcaster[*models.Quota]
	// mu orders write, read-back and publish so watchers never see an older row last
	mu sync.Mutex
}

// NewQuotaRepository creates a new quota repository instance
func NewQuotaRepository(db *sqlx.DB) QuotaRepository {
	return &quotaRepository{
		db:      db,
		changes: broadcast.New[*models.Quota](),
	}
}

// Watch streams the quota record. When the first read fails the stream stays
// empty until the next write or Refresh.
func (r *quotaRepository) Watch(ctx context.Context) <-chan *models.Quota {
	r.mu.Lock()
	if _, ok := r.changes.Latest(); !ok {
		if quota, err := r.GetOnce(ctx); err != nil {
			logging.GetGlobalLogger().Warn("Failed to load quota for watchers: %v", err)
		} else {
			r.changes.Seed(quota)
		}
	}
	r.mu.Unlock()
	return r.changes.Subscribe(ctx)
}

// Refresh publishes the stored quota to watchers
func (r *quotaRepository) Refresh(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.publish(ctx)
}

// GetOnce returns the quota record or nil
func (r *quotaRepository) GetOnce(ctx context.Context) (*models.Quota, error) {
	var quota models.Quota
	err := r.db.GetContext(ctx, &quota,
		r.db.Rebind(`SELECT limit_bytes, expiry_time_ms, enabled FROM quota WHERE id = ?`),
		models.QuotaRecordID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}
	return &quota, nil
}

// Save overwrites the quota record
func (r *quotaRepository) Save(ctx context.Context, quota models.Quota) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query := r.db.Rebind(`
		INSERT INTO quota (id, limit_bytes, expiry_time_ms, enabled)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			limit_bytes = excluded.limit_bytes,
			expiry_time_ms = excluded.expiry_time_ms,
			enabled = excluded.enabled`)

	if _, err := r.db.ExecContext(ctx, query,
		models.QuotaRecordID, quota.LimitBytes, quota.ExpiryTimeMs, quota.Enabled); err != nil {
		return fmt.Errorf("failed to save quota: %w", err)
	}

	return r.publish(ctx)
}

// UpdateEnabled toggles enforcement
func (r *quotaRepository) UpdateEnabled(ctx context.Context, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`UPDATE quota SET enabled = ? WHERE id = ?`),
		enabled, models.QuotaRecordID)
	if err != nil {
		return fmt.Errorf("failed to update quota enabled flag: %w", err)
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

// publish reads the record back so watchers see exactly what was committed
func (r *quotaRepository) publish(ctx context.Context) error {
	quota, err := r.GetOnce(ctx)
	if err != nil {
		return err
	}
	r.changes.Publish(quota)
	return nil
}
