/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

WIRE FORMATS:
  Dates are "2006-01-02", clock times are "HH:MM", weekdays are lowercase
  English names, money is a decimal string.

VALIDATION:
  Structural validation lives in the struct tags (go-playground/validator);
  domain rules stay in the academy package.

SEE ALSO:
  - handlers.go: Uses these types
  - academy/types.go: The domain model behind them
*/
package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/academy-engine/academy"
)

// =============================================================================
// STUDENTS
// =============================================================================

// StudentDTO represents a student in API responses. Status and wallet are
// derived on read, never stored.
type StudentDTO struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email,omitempty"`
	TeacherID string     `json:"teacher_id"`
	Notes     string     `json:"notes,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	Wallet    *WalletDTO `json:"wallet,omitempty"`
}

// CreateStudentRequest is the request to create or update a student.
type CreateStudentRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"omitempty,email"`
	TeacherID string `json:"teacher_id" validate:"required"`
	Notes     string `json:"notes"`
}

func toStudentDTO(s academy.Student) StudentDTO {
	return StudentDTO{
		ID:        string(s.ID),
		Name:      s.Name,
		Email:     s.Email,
		TeacherID: string(s.TeacherID),
		Notes:     s.Notes,
		CreatedAt: s.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// TEACHERS
// =============================================================================

// TeacherDTO represents a teacher in API responses.
type TeacherDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	RatePerLesson string `json:"rate_per_lesson"`
	CreatedAt     string `json:"created_at,omitempty"`
}

// CreateTeacherRequest is the request to create or update a teacher.
// RatePerLesson is the hourly pay rate as a decimal string.
type CreateTeacherRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name" validate:"required"`
	RatePerLesson string `json:"rate_per_lesson" validate:"omitempty"`
}

func toTeacherDTO(t academy.Teacher) TeacherDTO {
	return TeacherDTO{
		ID:            string(t.ID),
		Name:          t.Name,
		RatePerLesson: t.RatePerLesson.String(),
		CreatedAt:     t.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// WALLET
// =============================================================================

// WalletDTO is the derived lesson wallet of a student.
type WalletDTO struct {
	Balance   int    `json:"balance"`
	Reserved  int    `json:"reserved"`
	Available int    `json:"available"`
	Status    string `json:"status"`
}

func toWalletDTO(w academy.WalletSummary) WalletDTO {
	return WalletDTO{
		Balance:   w.Balance,
		Reserved:  w.Reserved,
		Available: w.Available,
		Status:    string(w.Status),
	}
}

// AdjustWalletRequest is a manual wallet correction.
type AdjustWalletRequest struct {
	Delta     int    `json:"delta" validate:"required"`
	Reason    string `json:"reason" validate:"required"`
	CreatedBy string `json:"created_by"`
}

// AdjustmentDTO is one append-only wallet correction.
type AdjustmentDTO struct {
	ID        string `json:"id"`
	StudentID string `json:"student_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at"`
}

func toAdjustmentDTO(a academy.Adjustment) AdjustmentDTO {
	return AdjustmentDTO{
		ID:        a.ID,
		StudentID: string(a.StudentID),
		Delta:     a.Delta,
		Reason:    a.Reason,
		CreatedBy: a.CreatedBy,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// =============================================================================
// PACKAGES
// =============================================================================

// SlotDTO is one weekly pattern entry, e.g. {"day": "tuesday", "time": "18:00"}.
type SlotDTO struct {
	Day  string `json:"day" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// PurchasePackageRequest records a purchase and generates the schedule.
// Slots may be empty on renewal; the previous pattern is copied.
type PurchasePackageRequest struct {
	StudentID       string    `json:"student_id" validate:"required"`
	TeacherID       string    `json:"teacher_id" validate:"required"`
	AmountPaid      string    `json:"amount_paid"`
	Lessons         int       `json:"lessons" validate:"required,gt=0"`
	DurationMinutes int       `json:"duration_minutes" validate:"required,gt=0"`
	StartDate       string    `json:"start_date" validate:"required"`
	Slots           []SlotDTO `json:"weekly_slots" validate:"dive"`
}

// PackageDTO represents a package in API responses.
type PackageDTO struct {
	ID              string    `json:"id"`
	StudentID       string    `json:"student_id"`
	TeacherID       string    `json:"teacher_id"`
	AmountPaid      string    `json:"amount_paid"`
	Lessons         int       `json:"lessons"`
	DurationMinutes int       `json:"duration_minutes"`
	StartDate       string    `json:"start_date"`
	Status          string    `json:"status"`
	Slots           []SlotDTO `json:"weekly_slots,omitempty"`
	CreatedAt       string    `json:"created_at,omitempty"`
}

func toPackageDTO(p academy.Package, slots []academy.WeeklySlot) PackageDTO {
	dto := PackageDTO{
		ID:              string(p.ID),
		StudentID:       string(p.StudentID),
		TeacherID:       string(p.TeacherID),
		AmountPaid:      p.AmountPaid.String(),
		Lessons:         p.LessonsPurchased,
		DurationMinutes: p.DurationMinutes,
		StartDate:       p.StartDate.Format("2006-01-02"),
		Status:          string(p.Status),
		CreatedAt:       p.CreatedAt.Format(time.RFC3339),
	}
	for _, s := range slots {
		dto.Slots = append(dto.Slots, SlotDTO{
			Day:  strings.ToLower(s.Day.String()),
			Time: s.Time.String(),
		})
	}
	return dto
}

// PurchaseResponse returns the package, its generated schedule, and the
// wallet after the purchase.
type PurchaseResponse struct {
	Package PackageDTO  `json:"package"`
	Lessons []LessonDTO `json:"lessons"`
	Wallet  WalletDTO   `json:"wallet"`
}

// =============================================================================
// LESSONS
// =============================================================================

// LessonDTO represents a lesson instance in API responses.
type LessonDTO struct {
	ID              string `json:"id"`
	PackageID       string `json:"package_id"`
	StudentID       string `json:"student_id"`
	TeacherID       string `json:"teacher_id"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Status          string `json:"status"`
	Bonus           bool   `json:"bonus,omitempty"`
	Notes           string `json:"notes,omitempty"`
	CreatedAt       string `json:"created_at,omitempty"`
}

func toLessonDTO(li academy.LessonInstance) LessonDTO {
	return LessonDTO{
		ID:              string(li.ID),
		PackageID:       string(li.PackageID),
		StudentID:       string(li.StudentID),
		TeacherID:       string(li.TeacherID),
		Date:            li.Date.Format("2006-01-02"),
		Time:            li.Time.String(),
		DurationMinutes: li.DurationMinutes,
		Status:          string(li.Status),
		Bonus:           li.Bonus,
		Notes:           li.Notes,
		CreatedAt:       li.CreatedAt.Format(time.RFC3339),
	}
}

func toLessonDTOs(instances []academy.LessonInstance) []LessonDTO {
	dtos := make([]LessonDTO, len(instances))
	for i, li := range instances {
		dtos[i] = toLessonDTO(li)
	}
	return dtos
}

// CreateLessonRequest adds one ad-hoc lesson to a package.
type CreateLessonRequest struct {
	Date             string `json:"date" validate:"required"`
	Time             string `json:"time" validate:"required"`
	DurationMinutes  int    `json:"duration_minutes" validate:"omitempty,gt=0"`
	Bonus            bool   `json:"bonus"`
	OverrideConflict bool   `json:"override_conflict"`
	Notes            string `json:"notes"`
}

// MarkLessonRequest transitions a lesson to completed, absent or cancelled.
type MarkLessonRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}

// RescheduleLessonRequest moves a live lesson to a new slot.
type RescheduleLessonRequest struct {
	Date string `json:"date" validate:"required"`
	Time string `json:"time" validate:"required"`
}

// LessonResponse pairs an updated lesson with the wallet it affected.
type LessonResponse struct {
	Lesson LessonDTO  `json:"lesson"`
	Wallet *WalletDTO `json:"wallet,omitempty"`
}

// =============================================================================
// REPORTS
// =============================================================================

// LessonCountsDTO is the per-student breakdown by status.
type LessonCountsDTO struct {
	Scheduled   int `json:"scheduled"`
	Rescheduled int `json:"rescheduled"`
	Completed   int `json:"completed"`
	Absent      int `json:"absent"`
	Cancelled   int `json:"cancelled"`
	Total       int `json:"total"`
}

func toLessonCountsDTO(c academy.LessonCounts) LessonCountsDTO {
	return LessonCountsDTO(c)
}

// TeacherHoursDTO is the hours-and-pay view for one teacher and period.
type TeacherHoursDTO struct {
	TeacherID string `json:"teacher_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Lessons   int    `json:"lessons"`
	Hours     string `json:"hours"`
	Pay       string `json:"pay"`
}

func toTeacherHoursDTO(r academy.TeacherHoursReport) TeacherHoursDTO {
	return TeacherHoursDTO{
		TeacherID: string(r.TeacherID),
		From:      r.From.Format("2006-01-02"),
		To:        r.To.Format("2006-01-02"),
		Lessons:   r.Lessons,
		Hours:     r.Hours.StringFixed(2),
		Pay:       r.Pay.StringFixed(2),
	}
}

// ConflictDTO describes the occupying lesson when a slot check fails.
type ConflictDTO struct {
	TeacherID   string `json:"teacher_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	LessonID    string `json:"lesson_id,omitempty"`
	StudentID   string `json:"student_id,omitempty"`
	StudentName string `json:"student_name,omitempty"`
}

func toConflictDTO(ce *academy.ConflictError) ConflictDTO {
	return ConflictDTO{
		TeacherID:   string(ce.TeacherID),
		Date:        ce.Date.Format("2006-01-02"),
		Time:        ce.Time.String(),
		LessonID:    string(ce.InstanceID),
		StudentID:   string(ce.StudentID),
		StudentName: ce.StudentName,
	}
}

// =============================================================================
// WIRE FORMAT PARSERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (use YYYY-MM-DD)", s)
	}
	return d, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseSlots(dtos []SlotDTO) ([]academy.WeeklySlot, error) {
	var out []academy.WeeklySlot
	for _, dto := range dtos {
		day, ok := weekdays[strings.ToLower(dto.Day)]
		if !ok {
			return nil, fmt.Errorf("invalid weekday %q", dto.Day)
		}
		tod, err := academy.ParseTimeOfDay(dto.Time)
		if err != nil {
			return nil, err
		}
		out = append(out, academy.WeeklySlot{Day: day, Time: tod})
	}
	return out, nil
}
