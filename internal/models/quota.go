package models

// QuotaRecordID is the fixed primary key of the single quota row
const QuotaRecordID = 1

// Quota is the configured byte limit and expiry after which connectivity is blocked.
// Enabled=false disables enforcement regardless of usage or expiry.
type Quota struct {
	LimitBytes   uint64 `json:"limit_bytes" db:"limit_bytes"`
	ExpiryTimeMs int64  `json:"expiry_time_ms" db:"expiry_time_ms"`
	Enabled      bool   `json:"enabled" db:"enabled"`
}
