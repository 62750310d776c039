/*
errors.go - Centralized error types for the academy engine

ERROR CATEGORIES (spec of the caller contract):
  1. Validation errors - bad input, empty weekly pattern, no credit
  2. Conflict errors   - double-booked slot, concurrent transition
  3. State errors      - disallowed lesson status transition
  4. Not-found errors  - unknown student/teacher/package/instance

Every rejected operation leaves all entities exactly as they were;
operations run all-or-nothing inside a store transaction.

USAGE:
  if errors.Is(err, academy.ErrConflict) { ... }
  var ce *academy.ConflictError
  if errors.As(err, &ce) { ... ce.StudentName ... }
*/
package academy

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrValidation is the root of all input-validation failures.
	ErrValidation = errors.New("validation failed")

	// ErrConflict is returned when a teacher slot is already occupied.
	ErrConflict = errors.New("slot conflict")

	// ErrState is returned for a disallowed lesson status transition,
	// including deleting an already-consumed lesson.
	ErrState = errors.New("invalid state transition")

	// ErrNotFound is returned for unknown identifiers.
	ErrNotFound = errors.New("not found")

	// ErrConcurrentModification is returned when an optimistic status check
	// detects that another writer got there first. Safe to retry after
	// re-reading current state.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrInsufficientCredit is returned when scheduling would exceed the
	// student's available purchased credit. A validation-class error.
	ErrInsufficientCredit = errors.New("insufficient lesson credit")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError reports a specific invalid field or rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// ConflictError reports the colliding lesson when a teacher slot is taken.
// Carries enough detail (student name and time) for a human to resolve.
type ConflictError struct {
	TeacherID   TeacherID
	Date        time.Time
	Time        TimeOfDay
	InstanceID  InstanceID
	StudentID   StudentID
	StudentName string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("teacher %s already has a lesson at %s %s (student %s)",
		e.TeacherID, e.Date.Format("2006-01-02"), e.Time, e.StudentName)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// StateError reports a rejected lesson status transition.
type StateError struct {
	InstanceID InstanceID
	From       LessonStatus
	To         LessonStatus
	Op         string // "mark", "reschedule", "delete"
}

func (e *StateError) Error() string {
	if e.Op == "delete" {
		return fmt.Sprintf("cannot delete lesson %s in status %q: history is immutable once consumed", e.InstanceID, e.From)
	}
	return fmt.Sprintf("cannot %s lesson %s: %q -> %q is not permitted", e.Op, e.InstanceID, e.From, e.To)
}

func (e *StateError) Unwrap() error { return ErrState }

// NotFoundError identifies which entity was missing.
type NotFoundError struct {
	Kind string // "student", "teacher", "package", "lesson"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InsufficientCreditError reports a wallet shortage blocking a new lesson.
type InsufficientCreditError struct {
	StudentID StudentID
	Status    StudentStatus
	Available int
}

func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("student %s has no available lesson credit (available %d, status %s)",
		e.StudentID, e.Available, e.Status)
}

func (e *InsufficientCreditError) Unwrap() error { return ErrInsufficientCredit }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInsufficientCredit)
}

// IsConflict returns true for slot collisions and lost-update conflicts.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrConcurrentModification)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsRetryable returns true if the operation might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
