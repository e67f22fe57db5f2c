package webhook

import "context"

// DailyTotalPayload mirrors the persisted daily total for external consumers.
type DailyTotalPayload struct {
	UserID       string `json:"user_id"`
	DisplayName  string `json:"display_name"`
	Day          string `json:"day"`
	TotalSeconds int64  `json:"total_seconds"`
	ServerName   string `json:"server_name"`
}

type Sender interface {
	SendDailyTotal(ctx context.Context, payload DailyTotalPayload) error
}
