// Package quota computes anchor-aligned monthly billing periods.
package quota

import "time"

// CurrentPeriod returns the closed-open monthly window [start, end) that
// contains now. Periods step from anchor one calendar month at a time; a
// step landing past the end of a short month is clamped to its last day,
// and later steps continue from the clamped date.
//
// If now is before anchor the first period is returned.
func CurrentPeriod(anchor, now time.Time) (start, end time.Time) {
	anchor = anchor.UTC()
	now = now.UTC()

	start = anchor
	for {
		next := AddMonth(start)
		if next.After(now) {
			return start, next
		}
		start = next
	}
}

// AddMonth adds one calendar month to t, clamping the day to the length of
// the target month (Jan 31 -> Feb 28 or 29).
func AddMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	targetYear, targetMonth := year, month+1
	if targetMonth > time.December {
		targetMonth = time.January
		targetYear++
	}
	if last := daysIn(targetYear, targetMonth); day > last {
		day = last
	}
	return time.Date(targetYear, targetMonth, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
