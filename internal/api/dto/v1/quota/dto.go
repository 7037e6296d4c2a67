package quota

// SaveRequest sets an explicit limit and expiry and re-enables enforcement
type SaveRequest struct {
	LimitBytes   *uint64 `json:"limit_bytes" binding:"required,lte=9223372036854775807"`
	ExpiryTimeMs int64   `json:"expiry_time_ms" binding:"required,epoch_ms"`
}

// FormRequest carries raw user input. Bad values fall back to defaults instead of failing.
type FormRequest struct {
	LimitMB string `json:"limit_mb"`
	Days    string `json:"days"`
}

// EnabledRequest toggles enforcement
type EnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// Response is the stored quota
type Response struct {
	LimitBytes   uint64 `json:"limit_bytes"`
	LimitMB      uint64 `json:"limit_mb"`
	ExpiryTimeMs int64  `json:"expiry_time_ms"`
	Enabled      bool   `json:"enabled"`
}
