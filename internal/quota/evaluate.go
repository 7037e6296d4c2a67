// Package quota derives the blocking decision from the quota and usage records.
package quota

import (
	"time"

	"github.com/osa911/datacap/internal/models"
)

// Evaluate combines a quota and a usage record into a DataStatus.
// It returns nil when either record is absent. It depends only on its
// arguments and may be called concurrently.
func Evaluate(q *models.Quota, u *models.Usage, now time.Time, sinkholeActive bool) *models.DataStatus {
	if q == nil || u == nil {
		return nil
	}

	nowMs := now.UnixMilli()
	used := u.TotalBytesUsed

	var remaining uint64
	if q.LimitBytes > used {
		remaining = q.LimitBytes - used
	}

	percentage := 0.0
	if q.LimitBytes > 0 {
		percentage = float64(used) / float64(q.LimitBytes) * 100
		if percentage > 100 {
			percentage = 100
		} else if percentage < 0 {
			percentage = 0
		}
	}

	var timeRemaining int64
	if q.ExpiryTimeMs > nowMs {
		timeRemaining = q.ExpiryTimeMs - nowMs
	}

	return &models.DataStatus{
		UsedBytes:        used,
		QuotaBytes:       q.LimitBytes,
		RemainingBytes:   remaining,
		PercentageUsed:   percentage,
		ExpiryTimeMs:     q.ExpiryTimeMs,
		IsBlocked:        IsBlocked(q, u, now),
		IsSinkholeActive: sinkholeActive,
		TimeRemainingMs:  timeRemaining,
	}
}

// IsBlocked reports whether the quota is enabled and either exhausted or expired.
func IsBlocked(q *models.Quota, u *models.Usage, now time.Time) bool {
	if q == nil || u == nil || !q.Enabled {
		return false
	}
	return u.TotalBytesUsed >= q.LimitBytes || now.UnixMilli() >= q.ExpiryTimeMs
}
