package academy_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/academy-engine/academy"
)

// =============================================================================
// TEACHER HOURS AND PAY TESTS
// =============================================================================

func TestTeacherHoursFor_CountsConsumedOnly(t *testing.T) {
	// GIVEN: A week with completed, absent, cancelled and upcoming lessons
	// WHEN: Computing hours
	// THEN: Completed and absent count (the slot was held); the rest do not

	teacher := academy.Teacher{ID: "t-anna", RatePerLesson: decimal.NewFromInt(20)}
	week := []academy.LessonInstance{
		{Date: academy.NewDate(2025, time.March, 3), DurationMinutes: 60, Status: academy.LessonCompleted},
		{Date: academy.NewDate(2025, time.March, 4), DurationMinutes: 90, Status: academy.LessonAbsent},
		{Date: academy.NewDate(2025, time.March, 5), DurationMinutes: 60, Status: academy.LessonCancelled},
		{Date: academy.NewDate(2025, time.March, 6), DurationMinutes: 60, Status: academy.LessonScheduled},
	}

	report := academy.TeacherHoursFor(teacher, week,
		academy.NewDate(2025, time.March, 3), academy.NewDate(2025, time.March, 9))

	assert.Equal(t, 2, report.Lessons)
	assert.True(t, report.Hours.Equal(decimal.NewFromFloat(2.5)), "60 + 90 minutes = 2.5h, got %s", report.Hours)
	assert.True(t, report.Pay.Equal(decimal.NewFromInt(50)), "2.5h x 20 = 50, got %s", report.Pay)
}

func TestTeacherHoursFor_RespectsRange(t *testing.T) {
	teacher := academy.Teacher{ID: "t-anna", RatePerLesson: decimal.NewFromInt(20)}
	instances := []academy.LessonInstance{
		{Date: academy.NewDate(2025, time.March, 2), DurationMinutes: 60, Status: academy.LessonCompleted}, // before
		{Date: academy.NewDate(2025, time.March, 5), DurationMinutes: 60, Status: academy.LessonCompleted},
		{Date: academy.NewDate(2025, time.March, 10), DurationMinutes: 60, Status: academy.LessonCompleted}, // after
	}

	report := academy.TeacherHoursFor(teacher, instances,
		academy.NewDate(2025, time.March, 3), academy.NewDate(2025, time.March, 9))

	assert.Equal(t, 1, report.Lessons)
	assert.True(t, report.Hours.Equal(decimal.NewFromInt(1)))
}

func TestTeacherHoursFor_FractionalRate(t *testing.T) {
	// Money math must stay exact: 45 minutes at 21.50/h is 16.125.
	teacher := academy.Teacher{ID: "t-anna", RatePerLesson: decimal.RequireFromString("21.50")}
	instances := []academy.LessonInstance{
		{Date: academy.NewDate(2025, time.March, 5), DurationMinutes: 45, Status: academy.LessonCompleted},
	}

	report := academy.TeacherHoursFor(teacher, instances,
		academy.NewDate(2025, time.March, 3), academy.NewDate(2025, time.March, 9))

	assert.True(t, report.Pay.Equal(decimal.RequireFromString("16.125")), "got %s", report.Pay)
}

func TestTeacherHours_EndToEnd(t *testing.T) {
	// GIVEN: Boris's package with two consumed lessons
	// WHEN: Asking for Anna's hours that week
	// THEN: The report covers exactly those lessons

	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	_, _, err := f.lessons.Mark(ctx, result.Instances[0].ID, academy.LessonCompleted, "")
	require.NoError(t, err)
	_, _, err = f.lessons.Mark(ctx, result.Instances[1].ID, academy.LessonAbsent, "")
	require.NoError(t, err)

	reports := academy.NewReports(f.store)
	from, to := academy.WeekRange(monday)
	report, err := reports.TeacherHours(ctx, "t-anna", from, to)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Lessons)
	assert.True(t, report.Hours.Equal(decimal.NewFromInt(2)))
	assert.True(t, report.Pay.Equal(decimal.NewFromInt(40)))

	_, err = reports.TeacherHours(ctx, "t-nobody", from, to)
	assert.ErrorIs(t, err, academy.ErrNotFound)

	_, err = reports.TeacherHours(ctx, "t-anna", to, from)
	assert.ErrorIs(t, err, academy.ErrValidation)
}

// =============================================================================
// STUDENT COUNT TESTS
// =============================================================================

func TestStudentCounts(t *testing.T) {
	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	_, _, err := f.lessons.Mark(ctx, result.Instances[0].ID, academy.LessonCompleted, "")
	require.NoError(t, err)
	_, _, err = f.lessons.Mark(ctx, result.Instances[1].ID, academy.LessonAbsent, "")
	require.NoError(t, err)
	_, _, err = f.lessons.Mark(ctx, result.Instances[2].ID, academy.LessonCancelled, "")
	require.NoError(t, err)
	_, err = f.lessons.Reschedule(ctx, result.Instances[3].ID, academy.NewDate(2025, time.May, 1), mustTime(t, "10:00"))
	require.NoError(t, err)

	reports := academy.NewReports(f.store)
	counts, err := reports.StudentCounts(ctx, "s-boris")
	require.NoError(t, err)

	assert.Equal(t, academy.LessonCounts{
		Scheduled:   4,
		Rescheduled: 1,
		Completed:   1,
		Absent:      1,
		Cancelled:   1,
		Total:       8,
	}, *counts)

	_, err = reports.StudentCounts(ctx, "s-nobody")
	assert.ErrorIs(t, err, academy.ErrNotFound)
}

// =============================================================================
// PERIOD HELPER TESTS
// =============================================================================

func TestPeriodRanges(t *testing.T) {
	// 2025-03-05 is a Wednesday
	wednesday := academy.NewDate(2025, time.March, 5)

	from, to := academy.DayRange(wednesday)
	assert.Equal(t, wednesday, from)
	assert.Equal(t, wednesday, to)

	from, to = academy.WeekRange(wednesday)
	assert.Equal(t, academy.NewDate(2025, time.March, 3), from, "weeks start Monday")
	assert.Equal(t, academy.NewDate(2025, time.March, 9), to)

	// A Sunday belongs to the week that began the previous Monday
	from, to = academy.WeekRange(academy.NewDate(2025, time.March, 9))
	assert.Equal(t, academy.NewDate(2025, time.March, 3), from)

	from, to = academy.MonthRange(wednesday)
	assert.Equal(t, academy.NewDate(2025, time.March, 1), from)
	assert.Equal(t, academy.NewDate(2025, time.March, 31), to)
}
