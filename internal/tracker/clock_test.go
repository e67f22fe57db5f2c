package tracker

import (
	"testing"
	"time"
)

func TestClock_DayKeyAppliesReportingTimezone(t *testing.T) {
	c := NewClock(bangkok(t))

	// 2024-01-01T18:30:00Z is already Jan 2 in Bangkok (UTC+7).
	at := time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC)
	if got := c.DayKey(at); got != "2024-01-02" {
		t.Fatalf("unexpected day key: %s", got)
	}

	at = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	if got := c.DayKey(at); got != "2024-01-01" {
		t.Fatalf("unexpected day key: %s", got)
	}
}

func TestClock_DayRange(t *testing.T) {
	loc := bangkok(t)
	c := NewClock(loc)

	start, end, err := c.DayRange("2024-01-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !start.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected start: %v", start)
	}
	if !end.Equal(time.Date(2024, 1, 2, 0, 0, 0, 0, loc)) {
		t.Fatalf("unexpected end: %v", end)
	}
}

func TestClock_DayRangeRejectsMalformedKey(t *testing.T) {
	c := NewClock(bangkok(t))
	if _, _, err := c.DayRange("January 1st"); err == nil {
		t.Fatal("expected error for malformed day key")
	}
}

func TestClock_NowInReportingTimezone(t *testing.T) {
	loc := bangkok(t)
	c := NewClock(loc)
	c.now = func() time.Time { return time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC) }

	got := c.Now()
	if got.Location() != loc {
		t.Fatalf("expected reporting timezone, got %v", got.Location())
	}
	if got.Hour() != 1 || got.Day() != 2 {
		t.Fatalf("unexpected converted time: %v", got)
	}
}
