package models

// UsageRecordID is the fixed primary key of the single usage row
const UsageRecordID = 1

// Usage is the number of bytes consumed since the last reset.
// TotalBytesUsed only grows between resets.
type Usage struct {
	TotalBytesUsed  uint64 `json:"total_bytes_used" db:"total_bytes_used"`
	LastResetTimeMs int64  `json:"last_reset_time_ms" db:"last_reset_time_ms"`
}

// TrafficBucket holds the bytes counted on one interface during one bucket window.
type TrafficBucket struct {
	Interface     string `json:"interface" db:"interface"`
	BucketStartMs int64  `json:"bucket_start_ms" db:"bucket_start_ms"`
	RxBytes       uint64 `json:"rx_bytes" db:"rx_bytes"`
	TxBytes       uint64 `json:"tx_bytes" db:"tx_bytes"`
}
