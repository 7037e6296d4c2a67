package models

// DataStatus is a derived snapshot of quota and usage. It is never persisted.
type DataStatus struct {
	UsedBytes        uint64  `json:"used_bytes"`
	QuotaBytes       uint64  `json:"quota_bytes"`
	RemainingBytes   uint64  `json:"remaining_bytes"`
	PercentageUsed   float64 `json:"percentage_used"`
	ExpiryTimeMs     int64   `json:"expiry_time_ms"`
	IsBlocked        bool    `json:"is_blocked"`
	IsSinkholeActive bool    `json:"is_sinkhole_active"`
	TimeRemainingMs  int64   `json:"time_remaining_ms"`
}
