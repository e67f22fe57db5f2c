package tracker

import "time"

const dayKeyFormat = "2006-01-02"

// Clock converts instants into the fixed reporting timezone. Every timestamp
// that reaches persistence or day-key computation goes through it, so the
// timezone is applied exactly once.
type Clock struct {
	loc *time.Location
	now func() time.Time
}

func NewClock(loc *time.Location) *Clock {
	return &Clock{loc: loc, now: time.Now}
}

func (c *Clock) Now() time.Time {
	return c.now().In(c.loc)
}

// DayKey returns the calendar date of t in the reporting timezone.
func (c *Clock) DayKey(t time.Time) string {
	return t.In(c.loc).Format(dayKeyFormat)
}

// DayRange returns the [start, end) instants of a day key in the reporting
// timezone.
func (c *Clock) DayRange(day string) (time.Time, time.Time, error) {
	start, err := time.ParseInLocation(dayKeyFormat, day, c.loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, start.AddDate(0, 0, 1), nil
}
