package notification

import (
	"fmt"

	"github.com/osa911/datacap/internal/models"
)

// Notification actions
const (
	ActionBlock    = "block"
	ActionUnblock  = "unblock"
	ActionSettings = "settings"
)

const (
	title        = "datacap"
	initializing = "Initializing..."
	megabyte     = 1024 * 1024
)

// Action is a button offered next to the notification
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Content is what a presenter shows for one status
type Content struct {
	Title            string   `json:"title"`
	Text             string   `json:"text"`
	Lines            []string `json:"lines,omitempty"`
	Ready            bool     `json:"ready"`
	UsedBytes        uint64   `json:"used_bytes"`
	QuotaBytes       uint64   `json:"quota_bytes"`
	RemainingBytes   uint64   `json:"remaining_bytes"`
	PercentageUsed   float64  `json:"percentage_used"`
	TimeRemainingMs  int64    `json:"time_remaining_ms"`
	IsBlocked        bool     `json:"is_blocked"`
	IsSinkholeActive bool     `json:"is_sinkhole_active"`
	Actions          []Action `json:"actions,omitempty"`
}

// Build renders the notification for status. A nil status renders the initializing placeholder.
func Build(status *models.DataStatus) Content {
	if status == nil {
		return Content{Title: title, Text: initializing}
	}

	usedMB := status.UsedBytes / megabyte
	quotaMB := status.QuotaBytes / megabyte
	remainingMB := status.RemainingBytes / megabyte
	percentage := int(status.PercentageUsed)

	internet := "Allowed"
	if status.IsBlocked {
		internet = "Blocked"
	}
	sinkhole := "Inactive"
	if status.IsSinkholeActive {
		sinkhole = "Active"
	}

	toggle := Action{ID: ActionBlock, Label: "Block"}
	if status.IsBlocked {
		toggle = Action{ID: ActionUnblock, Label: "Reactivate"}
	}

	return Content{
		Title: title,
		Text:  fmt.Sprintf("%d / %d MB (%d%%)", usedMB, quotaMB, percentage),
		Lines: []string{
			fmt.Sprintf("Used: %d MB", usedMB),
			fmt.Sprintf("Remaining: %d MB", remainingMB),
			fmt.Sprintf("Consumed: %d%%", percentage),
			fmt.Sprintf("Expires in: %s", FormatTimeRemaining(status.TimeRemainingMs)),
			fmt.Sprintf("Internet: %s", internet),
			fmt.Sprintf("Sinkhole: %s", sinkhole),
		},
		Ready:            true,
		UsedBytes:        status.UsedBytes,
		QuotaBytes:       status.QuotaBytes,
		RemainingBytes:   status.RemainingBytes,
		PercentageUsed:   status.PercentageUsed,
		TimeRemainingMs:  status.TimeRemainingMs,
		IsBlocked:        status.IsBlocked,
		IsSinkholeActive: status.IsSinkholeActive,
		Actions:          []Action{toggle, {ID: ActionSettings, Label: "Settings"}},
	}
}

// FormatTimeRemaining renders a coarse countdown: whole days, else whole hours, else "<1h"
func FormatTimeRemaining(ms int64) string {
	if ms <= 0 {
		return "Expired"
	}
	hours := ms / (1000 * 60 * 60)
	days := hours / 24
	switch {
	case days > 0:
		return fmt.Sprintf("%dd", days)
	case hours > 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return "<1h"
	}
}
