package booking

import "time"

// StartOfDay truncates t to midnight in loc. Schedule comparisons are by day.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day(), 0, 0, 0, 0, loc)
}

// DayWindow returns the half-open interval [start, end) covering t's day in loc.
func DayWindow(t time.Time, loc *time.Location) (time.Time, time.Time) {
	start := StartOfDay(t, loc)
	return start, start.AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

// IsDue reports whether dateNeeded is today or in the past relative to now.
func IsDue(dateNeeded, now time.Time, loc *time.Location) bool {
	return !StartOfDay(dateNeeded, loc).After(StartOfDay(now, loc))
}
