package repository

import (
	"context"
	"time"
)

type InsertPresenceEventInput struct {
	UserID      string
	DisplayName string
	Action      PresenceAction
	Speaking    bool
	OccurredAt  time.Time
	ServerName  string
}

type AddToDailyTotalInput struct {
	UserID      string
	DisplayName string
	Day         string
	AddSeconds  int64
	ServerName  string
}

type PresenceLogRepository interface {
	InsertPresenceEvent(ctx context.Context, input InsertPresenceEventInput) error
}

// DailyTotalRepository owns the per-user per-day aggregate records.
// AddToDailyTotal is an atomic read-modify-write: concurrent calls for the
// same (UserID, Day) must both be applied, never lost.
type DailyTotalRepository interface {
	AddToDailyTotal(ctx context.Context, input AddToDailyTotalInput) (*DailyTotal, error)
	GetDailyTotal(ctx context.Context, userID, day string) (*DailyTotal, error)
}

type Repository interface {
	PresenceLogRepository
	DailyTotalRepository
}
