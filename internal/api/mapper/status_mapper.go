package mapper

import (
	"github.com/osa911/datacap/internal/api/dto/v1/status"
	"github.com/osa911/datacap/internal/models"
	"github.com/osa911/datacap/internal/notification"
)

// StatusToResponse flattens a status snapshot. A nil snapshot maps to a not-ready response.
func StatusToResponse(s *models.DataStatus, engineRunning bool) *status.Response {
	resp := &status.Response{
		EngineRunning: engineRunning,
		Notification:  notification.Build(s),
	}
	if s == nil {
		return resp
	}

	resp.Ready = true
	resp.UsedBytes = s.UsedBytes
	resp.QuotaBytes = s.QuotaBytes
	resp.RemainingBytes = s.RemainingBytes
	resp.PercentageUsed = s.PercentageUsed
	resp.ExpiryTimeMs = s.ExpiryTimeMs
	resp.TimeRemainingMs = s.TimeRemainingMs
	resp.TimeRemaining = notification.FormatTimeRemaining(s.TimeRemainingMs)
	resp.IsBlocked = s.IsBlocked
	resp.IsSinkholeActive = s.IsSinkholeActive
	return resp
}
