/*
Package academy provides the core engine of the tutoring academy:
prepaid lesson packages, recurring weekly scheduling, attendance, and the
per-student lesson wallet that gates access to further lessons.

KEY CONCEPTS IN THIS FILE (types.go):
  - Student/Teacher: the people; a student belongs to one teacher
  - Package: a purchase of a block of lessons plus a weekly time pattern
  - WeeklySlot: one (weekday, time-of-day) entry of that pattern
  - LessonInstance: one concrete dated/timed lesson, the unit of truth
  - TimeOfDay: minute-of-day clock value used for lesson start times

DESIGN PRINCIPLES:
  1. Derived balances: the wallet is always computed from packages,
     instances and adjustments - there is no stored balance to drift
  2. Precision: money fields use decimal.Decimal, never float
  3. Type safety: distinct ID types prevent mixing students and teachers
  4. Immutability of history: consumed lessons are never deleted

SEE ALSO:
  - wallet.go: balance math and status transitions
  - expander.go: weekly pattern expansion
  - lessons.go: lesson instance operations
  - lifecycle.go: package creation and renewal
*/
package academy

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type StudentID string
type TeacherID string
type PackageID string
type InstanceID string

// =============================================================================
// TIME OF DAY - Lesson start times ("18:00")
// =============================================================================

// TimeOfDay is a clock time expressed as minutes since midnight.
// Lesson slots compare by exact equality, so a plain minute count is enough.
type TimeOfDay int

// ParseTimeOfDay parses "HH:MM" (24h clock). The whole string must be
// the time; trailing garbage is an error, not ignored.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok || len(hh) < 1 || len(hh) > 2 || len(mm) != 2 || !allDigits(hh) || !allDigits(mm) {
		return 0, fmt.Errorf("invalid time of day %q (use HH:MM)", s)
	}
	h, _ := strconv.Atoi(hh)
	m, _ := strconv.Atoi(mm)
	t := TimeOfDay(h*60 + m)
	if m > 59 || !t.Valid() {
		return 0, fmt.Errorf("invalid time of day %q (use HH:MM)", s)
	}
	return t, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }
func (t TimeOfDay) Valid() bool { return t >= 0 && t < 24*60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// On combines a date with this time of day, in the date's location.
func (t TimeOfDay) On(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

// DateOf truncates a time to its UTC calendar day. Lesson dates are stored
// at day granularity; the start time lives in TimeOfDay.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC calendar day.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two times fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// =============================================================================
// STUDENTS AND TEACHERS
// =============================================================================

// StudentStatus is the access-control tier derived from the wallet balance.
// It is never stored; see wallet.go for the derivation.
type StudentStatus string

const (
	StudentActive  StudentStatus = "active"
	StudentGrace   StudentStatus = "grace"
	StudentBlocked StudentStatus = "blocked"
)

type Student struct {
	ID        StudentID
	Name      string
	Email     string
	TeacherID TeacherID
	Notes     string
	CreatedAt time.Time
}

type Teacher struct {
	ID   TeacherID
	Name string

	// RatePerLesson is, despite the inherited name, an HOURLY rate.
	// Pay is computed as hours taught times this rate (see reports.go).
	RatePerLesson decimal.Decimal

	CreatedAt time.Time
}

// =============================================================================
// PACKAGES - One purchase of a block of lessons
// =============================================================================

type PackageStatus string

const (
	PackageActive    PackageStatus = "active"
	PackageCompleted PackageStatus = "completed"
)

type Package struct {
	ID               PackageID
	StudentID        StudentID
	TeacherID        TeacherID
	AmountPaid       decimal.Decimal
	LessonsPurchased int
	DurationMinutes  int
	StartDate        time.Time
	Status           PackageStatus
	CreatedAt        time.Time
}

// WeeklySlot is one entry of a package's recurring weekly pattern.
// The pattern is only an input to generation: editing it later does not
// touch instances that were already generated.
type WeeklySlot struct {
	Day  time.Weekday
	Time TimeOfDay
}

func (s WeeklySlot) String() string {
	return fmt.Sprintf("%s %s", s.Day, s.Time)
}

// =============================================================================
// LESSON INSTANCES - The unit of scheduling truth
// =============================================================================

type LessonStatus string

const (
	LessonScheduled   LessonStatus = "scheduled"
	LessonCompleted   LessonStatus = "completed"
	LessonAbsent      LessonStatus = "absent"
	LessonCancelled   LessonStatus = "cancelled"
	LessonRescheduled LessonStatus = "rescheduled"
)

// Live reports whether the instance still holds a reserved credit:
// scheduled and rescheduled lessons have not yet happened.
func (s LessonStatus) Live() bool {
	return s == LessonScheduled || s == LessonRescheduled
}

// Terminal reports whether no further transitions may leave this status.
func (s LessonStatus) Terminal() bool {
	return s == LessonCompleted || s == LessonAbsent || s == LessonCancelled
}

// Consumed reports whether the instance used up a lesson credit.
// An absence still costs a lesson: a no-show consumes the reservation.
func (s LessonStatus) Consumed() bool {
	return s == LessonCompleted || s == LessonAbsent
}

func ValidLessonStatus(s LessonStatus) bool {
	switch s {
	case LessonScheduled, LessonCompleted, LessonAbsent, LessonCancelled, LessonRescheduled:
		return true
	}
	return false
}

type LessonInstance struct {
	ID              InstanceID
	PackageID       PackageID
	StudentID       StudentID
	TeacherID       TeacherID
	Date            time.Time // UTC calendar day
	Time            TimeOfDay
	DurationMinutes int
	Status          LessonStatus

	// Bonus marks a free lesson granted outside the purchased count.
	// Bonus instances never touch the wallet.
	Bonus bool

	// ConflictOverride records that an admin knowingly double-booked the
	// teacher for this lesson. Override instances are exempt from the
	// slot-uniqueness backstop in the SQLite store.
	ConflictOverride bool

	Notes     string
	CreatedAt time.Time
}

// =============================================================================
// WALLET ADJUSTMENTS - Manual admin corrections (append-only)
// =============================================================================

// Adjustment is a manual wallet correction. Like everything else that
// affects balance it is append-only: mistakes are corrected by a new
// adjustment with the opposite sign, never by editing history.
type Adjustment struct {
	ID        string
	StudentID StudentID
	Delta     int
	Reason    string
	CreatedBy string
	CreatedAt time.Time
}
