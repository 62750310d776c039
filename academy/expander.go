/*
expander.go - Weekly pattern expansion into dated lesson instances

PURPOSE:
  Turns a package's recurring weekly pattern plus a lesson count into the
  concrete dated instances, in ascending (date, time) order. Pure: no I/O,
  no IDs - lifecycle.go fills in ownership and persists.

ALGORITHM:
  Walk forward day-by-day from the start date. Whenever the current
  weekday matches one or more slots, emit one instance per slot, times
  ascending. Stop once the purchased count is reached. A slot earlier in
  the week than the start weekday rolls to the following week, never
  backward: the first emitted date is always >= start.
*/
package academy

import (
	"sort"
	"time"
)

// Expand generates `lessons` instances from the weekly pattern, starting
// at `startDate`. Returns ValidationError for an empty pattern,
// non-positive count or duration, or duplicate slots.
func Expand(slots []WeeklySlot, lessons int, startDate time.Time, durationMinutes int) ([]LessonInstance, error) {
	if err := validatePattern(slots, lessons, durationMinutes); err != nil {
		return nil, err
	}

	// Group slot times by weekday, ascending, for the day-by-day walk.
	byDay := make(map[time.Weekday][]TimeOfDay)
	for _, s := range slots {
		byDay[s.Day] = append(byDay[s.Day], s.Time)
	}
	for d := range byDay {
		times := byDay[d]
		sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	}

	instances := make([]LessonInstance, 0, lessons)
	for day := DateOf(startDate); len(instances) < lessons; day = day.AddDate(0, 0, 1) {
		for _, tod := range byDay[day.Weekday()] {
			if len(instances) == lessons {
				break
			}
			instances = append(instances, LessonInstance{
				Date:            day,
				Time:            tod,
				DurationMinutes: durationMinutes,
				Status:          LessonScheduled,
			})
		}
	}

	return instances, nil
}

func validatePattern(slots []WeeklySlot, lessons, durationMinutes int) error {
	if len(slots) == 0 {
		return &ValidationError{Field: "weekly_slots", Message: "weekly pattern is empty; nothing to generate"}
	}
	if lessons <= 0 {
		return &ValidationError{Field: "lessons_purchased", Message: "lesson count must be positive"}
	}
	if durationMinutes <= 0 {
		return &ValidationError{Field: "duration_minutes", Message: "duration must be positive"}
	}

	seen := make(map[WeeklySlot]bool, len(slots))
	for _, s := range slots {
		if s.Day < time.Sunday || s.Day > time.Saturday {
			return &ValidationError{Field: "weekly_slots", Message: "day of week out of range"}
		}
		if !s.Time.Valid() {
			return &ValidationError{Field: "weekly_slots", Message: "time of day out of range"}
		}
		if seen[s] {
			return &ValidationError{Field: "weekly_slots", Message: "duplicate slot " + s.String()}
		}
		seen[s] = true
	}
	return nil
}
