// Package schedule holds the calendar math and seat derivation shared by the
// admin grid, the booking form and the tutor portal.
package schedule

import (
	"fmt"
	"iter"
	"time"
)

// ISOLayout is the calendar date layout used for session dates.
const ISOLayout = "2006-01-02"

// DayNames maps weekday numbers (1=Mon … 7=Sun) to display names; index 0 is unused.
var DayNames = [8]string{"", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayOf returns the weekday number of t, Monday=1 … Sunday=7.
func WeekdayOf(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// WeekStart returns midnight of the Monday on or before t, in loc.
// Weeks always begin on Monday regardless of locale.
func WeekStart(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	t = t.In(loc)
	y, m, d := t.Date()
	return time.Date(y, m, d-(WeekdayOf(t)-1), 0, 0, 0, 0, loc)
}

// AddDays moves t by n calendar days keeping the wall clock, so DST
// transitions never shift a date.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	h, mi, s := t.Clock()
	return time.Date(y, m, d+n, h, mi, s, t.Nanosecond(), t.Location())
}

// WeekDates yields days consecutive dates starting at weekStart. The
// sequence is lazy and can be ranged over any number of times.
func WeekDates(weekStart time.Time, days int) iter.Seq[time.Time] {
	return func(yield func(time.Time) bool) {
		for i := 0; i < days; i++ {
			if !yield(AddDays(weekStart, i)) {
				return
			}
		}
	}
}

// ISODate formats t as YYYY-MM-DD in t's own location.
func ISODate(t time.Time) string {
	return t.Format(ISOLayout)
}

// ParseISODate parses a YYYY-MM-DD string as midnight in loc.
func ParseISODate(raw string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(ISOLayout, raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", raw, err)
	}
	return t, nil
}

// WeekdayNumber returns the weekday number (1=Mon … 7=Sun) of an ISO date.
func WeekdayNumber(isoDate string) (int, error) {
	t, err := time.Parse(ISOLayout, isoDate)
	if err != nil {
		return 0, fmt.Errorf("parse date %q: %w", isoDate, err)
	}
	return WeekdayOf(t), nil
}

// ShiftISODate returns the ISO date n days after isoDate.
func ShiftISODate(isoDate string, n int) (string, error) {
	t, err := time.Parse(ISOLayout, isoDate)
	if err != nil {
		return "", fmt.Errorf("parse date %q: %w", isoDate, err)
	}
	return ISODate(AddDays(t, n)), nil
}

// WeekRange returns the inclusive-from, exclusive-to ISO bounds for a week of days.
func WeekRange(weekStart time.Time, days int) (from, to string) {
	return ISODate(weekStart), ISODate(AddDays(weekStart, days))
}
