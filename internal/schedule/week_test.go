package schedule

import (
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeekStartInvariant(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Every hour across a full year, including both DST transitions.
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, loc)
	for x := start; x.Before(start.AddDate(1, 0, 0)); x = x.Add(time.Hour) {
		ws := WeekStart(x, loc)
		require.Equal(t, 1, WeekdayOf(ws), "week start of %s", x)
		require.Zero(t, ws.Hour())
		require.False(t, x.Before(ws), "%s before its week start %s", x, ws)
		require.True(t, x.Before(AddDays(ws, 7)), "%s beyond its week", x)

		wd, err := WeekdayNumber(ISODate(ws))
		require.NoError(t, err)
		require.Equal(t, 1, wd)
	}
}

func TestWeekStartAcrossYearBoundary(t *testing.T) {
	loc := time.UTC
	for day := 29; day <= 35; day++ {
		x := time.Date(2025, 12, day, 13, 0, 0, 0, loc)
		ws := WeekStart(x, loc)
		assert.Equal(t, "2025-12-29", ISODate(ws), "date %s", ISODate(x))
	}

	dates := slices.Collect(WeekDates(time.Date(2025, 12, 29, 0, 0, 0, 0, loc), 7))
	require.Len(t, dates, 7)
	assert.Equal(t, "2026-01-04", ISODate(dates[6]))
	sunday, err := WeekdayNumber("2026-01-04")
	require.NoError(t, err)
	assert.Equal(t, 7, sunday)
}

func TestWeekStartOnSundayGoesBack(t *testing.T) {
	x := time.Date(2026, 2, 8, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2026-02-02", ISODate(WeekStart(x, time.UTC)))
}

func TestWeekDatesIsRestartable(t *testing.T) {
	seq := WeekDates(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), 5)
	first := slices.Collect(seq)
	second := slices.Collect(seq)
	require.Len(t, first, 5)
	assert.Equal(t, first, second)
	assert.Equal(t, "2026-02-06", ISODate(first[4]))

	var taken []time.Time
	for d := range seq {
		taken = append(taken, d)
		if len(taken) == 2 {
			break
		}
	}
	assert.Len(t, taken, 2)
}

func TestShiftISODateAndRange(t *testing.T) {
	next, err := ShiftISODate("2026-02-02", 14)
	require.NoError(t, err)
	assert.Equal(t, "2026-02-16", next)

	_, err = ShiftISODate("02/02/2026", 7)
	assert.Error(t, err)

	from, to := WeekRange(time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC), 5)
	assert.Equal(t, "2026-02-02", from)
	assert.Equal(t, "2026-02-07", to)
}

func TestParseISODate(t *testing.T) {
	d, err := ParseISODate("2026-03-08", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, 7, WeekdayOf(d))

	_, err = ParseISODate("2026-13-01", time.UTC)
	assert.Error(t, err)
}
