package temporal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/presentos/presentos/internal/temporal"
)

var ist = time.FixedZone("IST", int(5*time.Hour+30*time.Minute)/int(time.Second))

// refTime is a Monday morning.
func refTime() time.Time {
	return time.Date(2025, time.June, 2, 8, 15, 0, 0, ist)
}

func newParser(t *testing.T) *temporal.Parser {
	t.Helper()
	return temporal.NewParser(ist)
}

func TestAllDayKeywordOverridesExplicitTime(t *testing.T) {
	p := newParser(t)

	res := p.Parse("birthday party at 7pm", refTime())
	assert.True(t, res.AllDay, "all-day keyword must win over a time pattern")
	assert.Equal(t, time.Date(2025, time.June, 2, 0, 0, 0, 0, ist), res.Date)
}

func TestVacationIsAllDay(t *testing.T) {
	p := newParser(t)

	res := p.Parse("going on vacation", refTime())
	assert.True(t, res.AllDay)
}

func TestExplicitDateRollsForward(t *testing.T) {
	p := newParser(t)

	// Reference after Nov 25 → next year.
	after := time.Date(2025, time.December, 1, 10, 0, 0, 0, ist)
	res := p.Parse("trip 25 Nov", after)
	require.True(t, res.AllDay)
	assert.Equal(t, time.Date(2026, time.November, 25, 0, 0, 0, 0, ist), res.Date)

	// Reference before Nov 25 → this year.
	res = p.Parse("trip 25 Nov", refTime())
	require.True(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.November, 25, 0, 0, 0, 0, ist), res.Date)
}

func TestMonthDayForm(t *testing.T) {
	p := newParser(t)

	res := p.Parse("meeting Nov 25 at 10am", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.November, 25, 10, 0, 0, 0, ist), res.Start)
}

func TestNumericDateDayFirst(t *testing.T) {
	p := newParser(t)

	// 5/3 is ambiguous: day-first interpretation (March 5) wins. The
	// reference date is June, so it rolls to next year.
	res := p.Parse("meeting on 5/3 at 9am", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, time.Date(2026, time.March, 5, 9, 0, 0, 0, ist), res.Start)

	// 11/25 cannot be day-first (month 25) → falls back to month/day.
	res = p.Parse("meeting on 11/25 at 9am", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.November, 25, 9, 0, 0, 0, ist), res.Start)
}

func TestLeapDayRollForwardFallsBackToToday(t *testing.T) {
	p := newParser(t)

	// Feb 29 already passed in a leap year: next year has no Feb 29 and the
	// month-first reading (month 29) is invalid too, so the date defaults to
	// today instead of a zero time.
	after := time.Date(2024, time.March, 1, 10, 0, 0, 0, ist)
	res := p.Parse("trip on 29/2", after)
	require.True(t, res.AllDay)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, ist), res.Date)
}

func TestNumericDateExplicitYearNeverRolls(t *testing.T) {
	p := newParser(t)

	res := p.Parse("meeting 25/11/2023 at 9am", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 2023, res.Start.Year())
}

func TestTomorrowWithTime(t *testing.T) {
	p := newParser(t)

	res := p.Parse("meeting tomorrow at 3pm", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.June, 3, 15, 0, 0, 0, ist), res.Start)
	assert.Equal(t, 1.0, res.DurationHours)
	assert.Equal(t, res.Start.Add(time.Hour), res.End)
}

func TestWeekdayNameNeverMeansToday(t *testing.T) {
	p := newParser(t)

	// Reference is a Monday; "monday" must resolve to next Monday.
	res := p.Parse("meeting monday", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.June, 9, 10, 0, 0, 0, ist), res.Start)
}

func TestNextWeek(t *testing.T) {
	p := newParser(t)

	res := p.Parse("day off next week", refTime())
	require.True(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.June, 9, 0, 0, 0, 0, ist), res.Date)
}

func TestSmartDefaultTimes(t *testing.T) {
	p := newParser(t)

	cases := []struct {
		text string
		hour int
	}{
		{"lunch with Sam", 13},
		{"dinner with the team", 19},
		{"gym session", 9},
		{"movie with friends", 19},
		{"coffee catchup", 9},
		{"meeting with legal", 10},
	}
	for _, tc := range cases {
		res := p.Parse(tc.text, refTime())
		require.False(t, res.AllDay, "%q should be a timed event", tc.text)
		assert.Equal(t, tc.hour, res.Start.Hour(), "text %q", tc.text)
		assert.Equal(t, 0, res.Start.Minute(), "text %q", tc.text)
		assert.Equal(t, 1.0, res.DurationHours, "text %q", tc.text)
	}
}

func TestNoTimeNoContextIsAllDay(t *testing.T) {
	p := newParser(t)

	res := p.Parse("dentist appointment tomorrow", refTime())
	assert.True(t, res.AllDay)
	assert.Equal(t, time.Date(2025, time.June, 3, 0, 0, 0, 0, ist), res.Date)
}

func TestMinutesDuration(t *testing.T) {
	p := newParser(t)

	res := p.Parse("call John at 2:30pm for 45 min", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 14, res.Start.Hour())
	assert.Equal(t, 30, res.Start.Minute())
	assert.Equal(t, 0.75, res.DurationHours)
	assert.Equal(t, res.Start.Add(45*time.Minute), res.End)
}

func TestHoursDuration(t *testing.T) {
	p := newParser(t)

	res := p.Parse("2 hour planning meeting at 11am", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 2.0, res.DurationHours)
	assert.Equal(t, res.Start.Add(2*time.Hour), res.End)
}

func TestTwentyFourHourClock(t *testing.T) {
	p := newParser(t)

	res := p.Parse("sync at 14:30", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 14, res.Start.Hour())
	assert.Equal(t, 30, res.Start.Minute())
}

func TestNoonAndMidnightConversion(t *testing.T) {
	p := newParser(t)

	res := p.Parse("call at 12pm", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 12, res.Start.Hour())

	res = p.Parse("call at 12am tomorrow", refTime())
	require.False(t, res.AllDay)
	assert.Equal(t, 0, res.Start.Hour())
}

func TestEndAlwaysAfterStart(t *testing.T) {
	p := newParser(t)

	for _, text := range []string{
		"meeting tomorrow at 3pm",
		"lunch with Sam",
		"call at 9am for 15 min",
		"standup friday",
	} {
		res := p.Parse(text, refTime())
		require.False(t, res.AllDay, "text %q", text)
		assert.True(t, res.End.After(res.Start), "text %q", text)
	}
}
