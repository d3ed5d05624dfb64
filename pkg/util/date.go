package util

import (
	"strconv"
	"time"
)

// brentDateLayout matches the day-month-year format of the Brent price
// archive, e.g. "20-May-87". Go's "2" day token accepts unpadded days.
const brentDateLayout = "2-Jan-06"

// calendarDateLayout is the ISO calendar date used by API parameters.
const calendarDateLayout = "2006-01-02"

// ParseBrentDate parses an archive-format date. Returns (t, true) if it parsed.
func ParseBrentDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(brentDateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseCalendarDate parses an ISO calendar date. Returns (t, true) if it parsed.
func ParseCalendarDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(calendarDateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParseCalendarDateDefault parses an ISO date or returns default if empty/invalid.
func ParseCalendarDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseCalendarDate(s); ok {
		return t
	}
	return def
}

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}
