package services

import "time"

// nextBillingDate returns the first occurrence of the given day-of-month
// strictly after now. A day the current month cannot hold clamps to the
// month's last day before the comparison, so day 31 in April resolves to
// April 30 (or May 31 once April 30 has passed).
func nextBillingDate(day int, now time.Time) time.Time {
	year, month, _ := now.Date()

	candidate := time.Date(year, month, clampDay(day, year, month), 0, 0, 0, 0, time.UTC)
	today := time.Date(year, month, now.Day(), 0, 0, 0, 0, time.UTC)

	if !candidate.After(today) {
		next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
		candidate = time.Date(next.Year(), next.Month(), clampDay(day, next.Year(), next.Month()), 0, 0, 0, 0, time.UTC)
	}
	return candidate
}

// addCalendarMonth moves t exactly one calendar month forward, clamping
// month-end overflow instead of normalizing it (Jan 31 -> Feb 28, never
// Mar 3).
func addCalendarMonth(t time.Time) time.Time {
	year, month, day := t.Date()
	next := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC)
	return time.Date(next.Year(), next.Month(), clampDay(day, next.Year(), next.Month()), 0, 0, 0, 0, time.UTC)
}

func clampDay(day, year int, month time.Month) int {
	if last := daysInMonth(year, month); day > last {
		return last
	}
	return day
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
