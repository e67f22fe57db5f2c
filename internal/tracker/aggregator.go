package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/thanwa/voicetally/internal/metrics"
	"github.com/thanwa/voicetally/internal/repository"
)

// Aggregator folds closed sessions into per-user per-day totals. The
// persisted record is updated with an atomic additive upsert; an in-memory
// cache mirrors it and stays authoritative for the rest of the process
// lifetime when a persistence write fails.
type Aggregator struct {
	repo  repository.DailyTotalRepository
	clock *Clock

	mu     sync.Mutex
	totals map[totalKey]int64
}

type totalKey struct {
	userID string
	day    string
}

func NewAggregator(repo repository.DailyTotalRepository, clock *Clock) *Aggregator {
	return &Aggregator{
		repo:   repo,
		clock:  clock,
		totals: make(map[totalKey]int64),
	}
}

// RecordSession adds one session's elapsed time to the user's total for the
// day of the close instant. Negative durations from clock skew or reordered
// delivery are clamped to zero.
func (a *Aggregator) RecordSession(ctx context.Context, userID, displayName string, openedAt, closedAt time.Time, serverName string) *repository.DailyTotal {
	dur := closedAt.Sub(openedAt)
	if dur < 0 {
		dur = 0
	}
	seconds := int64(dur / time.Second)
	day := a.clock.DayKey(closedAt)
	key := totalKey{userID: userID, day: day}

	a.mu.Lock()
	a.totals[key] += seconds
	cached := a.totals[key]
	a.mu.Unlock()

	total, err := a.repo.AddToDailyTotal(ctx, repository.AddToDailyTotalInput{
		UserID:      userID,
		DisplayName: displayName,
		Day:         day,
		AddSeconds:  seconds,
		ServerName:  serverName,
	})
	if err != nil {
		slog.Error("failed to upsert daily total; continuing with in-memory total", "error", err, "user_id", userID, "day", day, "add_seconds", seconds)
		metrics.PersistenceErrorsTotal.WithLabelValues("upsert_daily_total").Inc()
		return &repository.DailyTotal{
			UserID:       userID,
			DisplayName:  displayName,
			Day:          day,
			TotalSeconds: cached,
			ServerName:   serverName,
		}
	}

	// The store may carry totals recorded before this process started. A
	// smaller persisted value means an earlier write never landed, and the
	// in-memory total stays authoritative then.
	a.mu.Lock()
	if total.TotalSeconds > a.totals[key] {
		a.totals[key] = total.TotalSeconds
	} else {
		total.TotalSeconds = a.totals[key]
	}
	a.mu.Unlock()
	return total
}

// Breakdown is a daily total split for human-readable output. It is derived,
// never stored.
type Breakdown struct {
	Hours   int64
	Minutes int64
	Seconds int64
}

func SplitSeconds(totalSeconds int64) Breakdown {
	return Breakdown{
		Hours:   totalSeconds / 3600,
		Minutes: (totalSeconds % 3600) / 60,
		Seconds: totalSeconds % 60,
	}
}
