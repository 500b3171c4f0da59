package leave

import (
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD (midnight in loc) or RFC3339. It returns the
// instant and the calendar date as UTC midnight.
func ParseDate(value string, loc *time.Location) (time.Time, time.Time, bool) {
	if loc == nil {
		loc = time.UTC
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, time.Time{}, false
	}
	instant, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		instant, err = time.Parse(time.RFC3339, value)
		if err != nil {
			return time.Time{}, time.Time{}, false
		}
	}
	return instant, calendarDate(instant.In(loc)), true
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func calendarDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// InclusiveDays counts calendar days from start to end, both included.
// Inputs must be UTC midnights; a reversed range yields zero.
func InclusiveDays(start, end time.Time) int {
	if end.Before(start) {
		return 0
	}
	return int(end.Sub(start)/(24*time.Hour)) + 1
}

func lastDayOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC)
}

// IntervalDays parses both ends of an interval and counts its inclusive days.
func IntervalDays(interval Interval, loc *time.Location) (int, bool) {
	_, start, ok := ParseDate(interval.StartDate, loc)
	if !ok {
		return 0, false
	}
	_, end, ok := ParseDate(interval.EndDate, loc)
	if !ok {
		return 0, false
	}
	return InclusiveDays(start, end), true
}
