/*
store.go - Persistence interfaces for the academy engine

PURPOSE:
  The boundary between the engine and the database. The Store is the
  single source of truth: balances and package completion are always
  derived from it, never cached by callers.

WRITE DISCIPLINE:
  - Consumed lessons (completed/absent) are never deleted; only live
    (scheduled/rescheduled) instances may be removed.
  - Status transitions and moves are optimistic: the caller passes the
    status it read, and the store fails with ErrConcurrentModification
    if another writer changed it in between.
  - Wallet adjustments are append-only.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite store
  - academy/store: in-memory store for tests/dev
*/
package academy

import (
	"context"
	"time"
)

// Store handles persistence of all academy entities.
type Store interface {
	// Students
	SaveStudent(ctx context.Context, s Student) error
	GetStudent(ctx context.Context, id StudentID) (*Student, error)
	ListStudents(ctx context.Context) ([]Student, error)

	// Teachers
	SaveTeacher(ctx context.Context, t Teacher) error
	GetTeacher(ctx context.Context, id TeacherID) (*Teacher, error)
	ListTeachers(ctx context.Context) ([]Teacher, error)

	// Packages and their weekly patterns
	SavePackage(ctx context.Context, p Package) error
	GetPackage(ctx context.Context, id PackageID) (*Package, error)
	ListPackagesByStudent(ctx context.Context, id StudentID) ([]Package, error)
	UpdatePackageStatus(ctx context.Context, id PackageID, status PackageStatus) error
	SaveSlots(ctx context.Context, id PackageID, slots []WeeklySlot) error
	GetSlots(ctx context.Context, id PackageID) ([]WeeklySlot, error)

	// Lesson instances
	InsertInstance(ctx context.Context, li LessonInstance) error
	GetInstance(ctx context.Context, id InstanceID) (*LessonInstance, error)
	ListInstancesByPackage(ctx context.Context, id PackageID) ([]LessonInstance, error)
	ListInstancesByStudent(ctx context.Context, id StudentID) ([]LessonInstance, error)

	// ListInstancesByTeacherOn returns the teacher's instances on one
	// calendar day, for conflict checks.
	ListInstancesByTeacherOn(ctx context.Context, id TeacherID, date time.Time) ([]LessonInstance, error)

	// ListInstancesByTeacherRange returns instances in [from, to] by date,
	// for the hours/pay views.
	ListInstancesByTeacherRange(ctx context.Context, id TeacherID, from, to time.Time) ([]LessonInstance, error)

	// UpdateInstanceStatus transitions an instance optimistically: fails
	// with ErrConcurrentModification unless the stored status equals
	// expect, with NotFoundError if the instance is missing.
	// A non-nil notes replaces the stored notes.
	UpdateInstanceStatus(ctx context.Context, id InstanceID, expect, next LessonStatus, notes *string) error

	// MoveInstance reschedules an instance in place (optimistic like
	// UpdateInstanceStatus); status becomes rescheduled at the new slot.
	MoveInstance(ctx context.Context, id InstanceID, expect LessonStatus, newDate time.Time, newTime TimeOfDay) error

	// DeleteInstance removes an instance, optimistically guarded so a
	// consumed lesson can never be deleted by a stale writer.
	DeleteInstance(ctx context.Context, id InstanceID, expect LessonStatus) error

	// Wallet adjustments (append-only)
	AddAdjustment(ctx context.Context, a Adjustment) error
	ListAdjustments(ctx context.Context, id StudentID) ([]Adjustment, error)

	// WalletInputs aggregates the counts the wallet derives from.
	// Bonus instances are excluded from every count.
	WalletInputs(ctx context.Context, id StudentID) (WalletInputs, error)
}

// TxStore wraps Store with transaction support. Every logical operation
// (mark lesson, reschedule, renew package) runs inside WithTx so a
// rejected operation leaves all entities exactly as they were.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction: rolled back if fn errors,
	// committed otherwise.
	WithTx(ctx context.Context, fn func(Store) error) error
}
