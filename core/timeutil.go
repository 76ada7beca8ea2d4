package core

import "time"

// StartOfDay returns midnight of t's calendar day, in t's location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay returns midnight of the following calendar day. Day intervals are
// half-open [StartOfDay, EndOfDay).
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

// StartOfWeek returns midnight of the Monday of t's week.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)

	offset := int(day.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}

	return day.AddDate(0, 0, -offset)
}

// DaysFrom returns n consecutive day starts beginning at start's day.
func DaysFrom(start time.Time, n int) []time.Time {
	days := make([]time.Time, 0, n)

	day := StartOfDay(start)
	for i := 0; i < n; i++ {
		days = append(days, day.AddDate(0, 0, i))
	}

	return days
}

// WeekDays returns the 7 day starts of t's Monday-based week.
func WeekDays(t time.Time) []time.Time {
	return DaysFrom(StartOfWeek(t), 7)
}

// MonthGridDays returns the day starts of the month display grid: every day
// of t's month plus the leading and trailing days needed to complete whole
// Monday-based weeks.
func MonthGridDays(t time.Time) []time.Time {
	firstOfMonth := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	firstOfNext := firstOfMonth.AddDate(0, 1, 0)

	gridStart := StartOfWeek(firstOfMonth)

	gridEnd := StartOfWeek(firstOfNext.AddDate(0, 0, -1)).AddDate(0, 0, 7)

	n := int(gridEnd.Sub(gridStart).Hours()/24 + 0.5)

	return DaysFrom(gridStart, n)
}

// DayKey formats a day for grouping and JSON keys.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// hourOfDay converts a clock time into fractional hours since midnight.
// Midnight of the following day maps to 24 rather than 0 so that segment
// ends at day boundaries keep their full extent.
func hourOfDay(t, day time.Time) float64 {
	if !t.After(day) {
		return 0
	}

	if !t.Before(EndOfDay(day)) {
		return 24
	}

	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600
}
