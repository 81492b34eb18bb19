// Package sla computes service-level targets and detects breaches.
//
// Business-hours policies count only minutes inside the schedule's
// per-weekday windows, in the policy timezone, skipping holidays. 24x7
// policies are plain wall-clock arithmetic.
package sla

import (
	"time"

	"github.com/atum-helpdesk/atum/internal/domain"
)

// AddBusinessMinutes returns the smallest T such that the business-minute
// count from start to T equals minutes. A nil schedule means 24x7.
func AddBusinessMinutes(start time.Time, minutes int, schedule *domain.BusinessSchedule, holidays []time.Time) time.Time {
	if minutes <= 0 {
		return start
	}
	if schedule == nil {
		return start.Add(time.Duration(minutes) * time.Minute)
	}

	loc := scheduleLocation(schedule)
	cursor := start.In(loc)
	remaining := minutes

	// Walk day by day; bounded to avoid spinning on an all-closed schedule.
	for day := 0; day < 3700; day++ {
		window := schedule.Days[int(cursor.Weekday())]
		if window == nil || isHoliday(cursor, holidays) {
			cursor = nextDayOpen(cursor, loc)
			continue
		}

		open := atMinute(cursor, window.OpenMinute, loc)
		close := atMinute(cursor, window.CloseMinute, loc)
		if cursor.Before(open) {
			cursor = open
		}
		if !cursor.Before(close) {
			cursor = nextDayOpen(cursor, loc)
			continue
		}

		available := int(close.Sub(cursor) / time.Minute)
		if remaining <= available {
			return cursor.Add(time.Duration(remaining) * time.Minute)
		}
		remaining -= available
		cursor = nextDayOpen(cursor, loc)
	}
	return cursor
}

// BusinessMinutesBetween counts schedule minutes elapsed from start to
// end. A nil schedule counts wall-clock minutes.
func BusinessMinutesBetween(start, end time.Time, schedule *domain.BusinessSchedule, holidays []time.Time) int {
	if !end.After(start) {
		return 0
	}
	if schedule == nil {
		return int(end.Sub(start) / time.Minute)
	}

	loc := scheduleLocation(schedule)
	cursor := start.In(loc)
	endLocal := end.In(loc)
	total := 0

	for day := 0; day < 3700 && cursor.Before(endLocal); day++ {
		window := schedule.Days[int(cursor.Weekday())]
		if window == nil || isHoliday(cursor, holidays) {
			cursor = nextDayOpen(cursor, loc)
			continue
		}

		open := atMinute(cursor, window.OpenMinute, loc)
		close := atMinute(cursor, window.CloseMinute, loc)
		if cursor.Before(open) {
			cursor = open
		}
		if !cursor.Before(close) {
			cursor = nextDayOpen(cursor, loc)
			continue
		}

		sliceEnd := close
		if endLocal.Before(close) {
			sliceEnd = endLocal
		}
		if sliceEnd.After(cursor) {
			total += int(sliceEnd.Sub(cursor) / time.Minute)
		}
		cursor = nextDayOpen(cursor, loc)
	}
	return total
}

func scheduleLocation(schedule *domain.BusinessSchedule) *time.Location {
	loc, err := time.LoadLocation(schedule.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// atMinute maps a wall-clock minute onto the cursor's date. In a DST
// fall-back window time.Date yields the earlier occurrence, which is the
// resolution this engine standardizes on.
func atMinute(cursor time.Time, minute int, loc *time.Location) time.Time {
	return time.Date(cursor.Year(), cursor.Month(), cursor.Day(), minute/60, minute%60, 0, 0, loc)
}

func nextDayOpen(cursor time.Time, loc *time.Location) time.Time {
	next := cursor.AddDate(0, 0, 1)
	return time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
}

func isHoliday(day time.Time, holidays []time.Time) bool {
	y, m, d := day.Date()
	for _, h := range holidays {
		hy, hm, hd := h.Date()
		if y == hy && m == hm && d == hd {
			return true
		}
	}
	return false
}
