package clock

import "time"

// Clock is the time source used for all date-window decisions.
type Clock interface {
	Now() time.Time
}

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }

// DayOf truncates t to midnight of its calendar day in loc.
func DayOf(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// Today returns midnight of the current day in loc.
func Today(c Clock, loc *time.Location) time.Time {
	return DayOf(c.Now(), loc)
}

// Yesterday returns midnight of the day before Today.
func Yesterday(c Clock, loc *time.Location) time.Time {
	return Today(c, loc).AddDate(0, 0, -1)
}
