package repository

import "time"

type PresenceAction string

const (
	PresenceActionJoin  PresenceAction = "join"
	PresenceActionLeave PresenceAction = "leave"
)

// PresenceEvent is one join or leave log line for a user in the monitored
// voice channel.
type PresenceEvent struct {
	ID          string
	UserID      string
	DisplayName string
	Action      PresenceAction
	Speaking    bool
	OccurredAt  time.Time
	ServerName  string
	CreatedAt   time.Time
}

// DailyTotal accumulates time-in-channel for one user on one calendar day in
// the reporting timezone. Day is a "YYYY-MM-DD" key; exactly one record exists
// per (UserID, Day).
type DailyTotal struct {
	ID           string
	UserID       string
	DisplayName  string
	Day          string
	TotalSeconds int64
	ServerName   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
