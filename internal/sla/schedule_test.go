package sla

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atum-helpdesk/atum/internal/domain"
)

func weekdaySchedule(tz string) *domain.BusinessSchedule {
	window := &domain.DayWindow{OpenMinute: 9 * 60, CloseMinute: 17 * 60}
	return &domain.BusinessSchedule{
		Timezone: tz,
		Days: [7]*domain.DayWindow{
			nil,    // Sunday
			window, // Monday
			window,
			window,
			window,
			window, // Friday
			nil,    // Saturday
		},
	}
}

func TestAddBusinessMinutesWallClockWhenNoSchedule(t *testing.T) {
	start := time.Date(2026, 3, 6, 22, 0, 0, 0, time.UTC)
	got := AddBusinessMinutes(start, 120, nil, nil)
	assert.Equal(t, start.Add(2*time.Hour), got)
}

func TestAddBusinessMinutesCrossesWeekend(t *testing.T) {
	schedule := weekdaySchedule("UTC")
	// Friday 16:00; one hour remains in the window.
	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC)

	got := AddBusinessMinutes(start, 120, schedule, nil)

	// 60 minutes Friday, 60 minutes Monday from 09:00.
	want := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestAddBusinessMinutesStartedAtFridayClose(t *testing.T) {
	schedule := weekdaySchedule("UTC")
	// Exactly at Friday close: nothing counts until Monday open.
	start := time.Date(2026, 3, 6, 17, 0, 0, 0, time.UTC)

	got := AddBusinessMinutes(start, 30, schedule, nil)

	want := time.Date(2026, 3, 9, 9, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestAddBusinessMinutesSkipsHoliday(t *testing.T) {
	schedule := weekdaySchedule("UTC")
	holiday := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC) // Monday
	start := time.Date(2026, 3, 6, 16, 30, 0, 0, time.UTC) // Friday 16:30

	got := AddBusinessMinutes(start, 60, schedule, []time.Time{holiday})

	// 30 minutes Friday, Monday closed, 30 minutes Tuesday.
	want := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestAddBusinessMinutesRespectsPolicyTimezone(t *testing.T) {
	schedule := weekdaySchedule("America/New_York")
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// Monday 08:00 local; the clock only starts at 09:00 local.
	start := time.Date(2026, 3, 2, 8, 0, 0, 0, loc)
	got := AddBusinessMinutes(start, 60, schedule, nil)

	want := time.Date(2026, 3, 2, 10, 0, 0, 0, loc)
	assert.True(t, want.Equal(got), "got %s", got)
}

func TestBusinessMinutesBetweenRoundTripsWithAdd(t *testing.T) {
	schedule := weekdaySchedule("UTC")
	start := time.Date(2026, 3, 5, 14, 20, 0, 0, time.UTC) // Thursday

	for _, minutes := range []int{1, 45, 480, 960, 2400} {
		target := AddBusinessMinutes(start, minutes, schedule, nil)
		counted := BusinessMinutesBetween(start, target, schedule, nil)
		assert.Equal(t, minutes, counted, "budget %d", minutes)
	}
}

func TestBusinessMinutesBetweenIgnoresClosedHours(t *testing.T) {
	schedule := weekdaySchedule("UTC")
	// Friday 16:00 through Monday 10:00: 60 + 60 business minutes.
	start := time.Date(2026, 3, 6, 16, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, 120, BusinessMinutesBetween(start, end, schedule, nil))
}

func TestBusinessMinutesBetweenZeroWhenReversed(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0, BusinessMinutesBetween(now, now.Add(-time.Hour), nil, nil))
}
