/*
reports.go - Derived read views for dashboards

Per-student lesson counts by status, and per-teacher hours and pay for a
day, week or month. Pay is hours taught times Teacher.RatePerLesson
(which, name notwithstanding, holds an hourly rate). Absences count as
taught hours: the teacher held the slot whether or not the student came.
*/
package academy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Reports computes read-only views from the store.
type Reports struct {
	store Store
}

func NewReports(store Store) *Reports {
	return &Reports{store: store}
}

// =============================================================================
// STUDENT LESSON COUNTS
// =============================================================================

type LessonCounts struct {
	Scheduled   int
	Rescheduled int
	Completed   int
	Absent      int
	Cancelled   int
	Total       int
}

// CountLessons tallies instances by status.
func CountLessons(instances []LessonInstance) LessonCounts {
	var c LessonCounts
	for _, li := range instances {
		switch li.Status {
		case LessonScheduled:
			c.Scheduled++
		case LessonRescheduled:
			c.Rescheduled++
		case LessonCompleted:
			c.Completed++
		case LessonAbsent:
			c.Absent++
		case LessonCancelled:
			c.Cancelled++
		}
		c.Total++
	}
	return c
}

// StudentCounts returns the student's lesson counts by status.
func (r *Reports) StudentCounts(ctx context.Context, id StudentID) (*LessonCounts, error) {
	st, err := r.store.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, &NotFoundError{Kind: "student", ID: string(id)}
	}
	instances, err := r.store.ListInstancesByStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	counts := CountLessons(instances)
	return &counts, nil
}

// =============================================================================
// TEACHER HOURS AND PAY
// =============================================================================

type TeacherHoursReport struct {
	TeacherID TeacherID
	From      time.Time
	To        time.Time
	Lessons   int // completed + absent (slots the teacher held)
	Hours     decimal.Decimal
	Pay       decimal.Decimal
}

var sixty = decimal.NewFromInt(60)

// TeacherHoursFor computes hours and pay from a set of instances.
// Pure; TeacherHours fetches and delegates here.
func TeacherHoursFor(teacher Teacher, instances []LessonInstance, from, to time.Time) TeacherHoursReport {
	report := TeacherHoursReport{
		TeacherID: teacher.ID,
		From:      DateOf(from),
		To:        DateOf(to),
		Hours:     decimal.Zero,
		Pay:       decimal.Zero,
	}

	minutes := 0
	for _, li := range instances {
		if !li.Status.Consumed() {
			continue
		}
		if li.Date.Before(report.From) || li.Date.After(report.To) {
			continue
		}
		report.Lessons++
		minutes += li.DurationMinutes
	}

	report.Hours = decimal.NewFromInt(int64(minutes)).Div(sixty)
	report.Pay = report.Hours.Mul(teacher.RatePerLesson)
	return report
}

// TeacherHours returns the teacher's hours and pay in [from, to].
func (r *Reports) TeacherHours(ctx context.Context, id TeacherID, from, to time.Time) (*TeacherHoursReport, error) {
	teacher, err := r.store.GetTeacher(ctx, id)
	if err != nil {
		return nil, err
	}
	if teacher == nil {
		return nil, &NotFoundError{Kind: "teacher", ID: string(id)}
	}
	if to.Before(from) {
		return nil, &ValidationError{Field: "to", Message: "range end before start"}
	}

	instances, err := r.store.ListInstancesByTeacherRange(ctx, id, DateOf(from), DateOf(to))
	if err != nil {
		return nil, err
	}
	report := TeacherHoursFor(*teacher, instances, from, to)
	return &report, nil
}

// =============================================================================
// PERIOD HELPERS
// =============================================================================

// DayRange is the single-day range containing t.
func DayRange(t time.Time) (time.Time, time.Time) {
	d := DateOf(t)
	return d, d
}

// WeekRange is the Monday-to-Sunday week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	d := DateOf(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday = 0
	start := d.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 6)
}

// MonthRange is the calendar month containing t.
func MonthRange(t time.Time) (time.Time, time.Time) {
	start := NewDate(t.Year(), t.Month(), 1)
	return start, start.AddDate(0, 1, -1)
}
