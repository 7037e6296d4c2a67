package packages

// Response describes a purchasable carrier package
type Response struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	DataGB       int    `json:"data_gb"`
	ValidityDays int    `json:"validity_days"`
	LimitBytes   uint64 `json:"limit_bytes"`
	USSDCode     string `json:"ussd_code"`
	Description  string `json:"description"`
}

// PurchaseResponse is returned once the quota has been renewed
type PurchaseResponse struct {
	Package      Response `json:"package"`
	LimitBytes   uint64   `json:"limit_bytes"`
	ExpiryTimeMs int64    `json:"expiry_time_ms"`
	Reply        string   `json:"reply,omitempty"`
	Message      string   `json:"message"`
}
