package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type trafficRepository struct {
	db *sqlx.DB
}

// NewTrafficRepository creates a new traffic bucket repository instance
func NewTrafficRepository(db *sqlx.DB) TrafficRepository {
	return &trafficRepository{db: db}
}

// AddBytes accumulates rx/tx into a bucket, creating it on first use
func (r *trafficRepository) AddBytes(ctx context.Context, iface string, bucketStart time.Time, rx, tx uint64) error {
	query := r.db.Rebind(`
		INSERT INTO traffic_buckets (iface, bucket_start_ms, rx_bytes, tx_bytes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (iface, bucket_start_ms) DO UPDATE SET
			rx_bytes = traffic_buckets.rx_bytes + excluded.rx_bytes,
			tx_bytes = traffic_buckets.tx_bytes + excluded.tx_bytes`)

	if _, err := r.db.ExecContext(ctx, query, iface, bucketStart.UnixMilli(), rx, tx); err != nil {
		return fmt.Errorf("failed to record traffic for %s: %w", iface, err)
	}
	return nil
}

// SumSince sums every bucket whose window [start, start+width) ends after sinceMs
func (r *trafficRepository) SumSince(ctx context.Context, sinceMs int64, width time.Duration) (uint64, error) {
	var total uint64
	err := r.db.GetContext(ctx, &total,
		r.db.Rebind(`SELECT COALESCE(SUM(rx_bytes + tx_bytes), 0) FROM traffic_buckets WHERE bucket_start_ms > ?`),
		sinceMs-width.Milliseconds())
	if err != nil {
		return 0, fmt.Errorf("failed to sum traffic: %w", err)
	}
	return total, nil
}

// DeleteOlderThan removes buckets that started before cutoff
func (r *trafficRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		r.db.Rebind(`DELETE FROM traffic_buckets WHERE bucket_start_ms < ?`),
		cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete old traffic buckets: %w", err)
	}
	return result.RowsAffected()
}
