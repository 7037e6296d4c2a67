package status

import "github.com/osa911/datacap/internal/notification"

// Response is the daemon's view of quota, usage and enforcement
type Response struct {
	Ready            bool                 `json:"ready"`
	EngineRunning    bool                 `json:"engine_running"`
	UsedBytes        uint64               `json:"used_bytes"`
	QuotaBytes       uint64               `json:"quota_bytes"`
	RemainingBytes   uint64               `json:"remaining_bytes"`
	PercentageUsed   float64              `json:"percentage_used"`
	ExpiryTimeMs     int64                `json:"expiry_time_ms"`
	TimeRemainingMs  int64                `json:"time_remaining_ms"`
	TimeRemaining    string               `json:"time_remaining"`
	IsBlocked        bool                 `json:"is_blocked"`
	IsSinkholeActive bool                 `json:"is_sinkhole_active"`
	Notification     notification.Content `json:"notification"`
}

// HealthResponse reports liveness of the daemon's dependencies
type HealthResponse struct {
	Status        string `json:"status"`
	Database      string `json:"database"`
	EngineRunning bool   `json:"engine_running"`
	Version       string `json:"version"`
}
