/*
lessons.go - Lesson instance operations

PURPOSE:
  The owning service for lesson instances: ad-hoc creation, attendance
  marking, rescheduling and deletion. Every operation runs inside one
  store transaction and applies the wallet rules from wallet.go; a
  rejected call leaves all entities untouched.

INVARIANTS ENFORCED HERE:
  - One wallet-affecting event per instance (hold at creation, converted
    or released exactly once afterwards)
  - New non-bonus lessons require an available credit and a non-blocked
    student; consuming an already-held credit is always allowed
  - Consumed lessons (completed/absent) are immutable history
  - Lost updates fail with ErrConcurrentModification instead of
    silently overwriting

SEE ALSO:
  - wallet.go: the transition rules applied here
  - conflict.go: slot collision checks
  - lifecycle.go: package generation and derived completion
*/
package academy

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Lessons operates on lesson instances.
type Lessons struct {
	store      TxStore
	thresholds Thresholds
}

func NewLessons(store TxStore, thresholds Thresholds) *Lessons {
	return &Lessons{store: store, thresholds: thresholds}
}

// Wallet returns the student's derived wallet summary.
func (l *Lessons) Wallet(ctx context.Context, studentID StudentID) (*WalletSummary, error) {
	st, err := l.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, &NotFoundError{Kind: "student", ID: string(studentID)}
	}
	in, err := l.store.WalletInputs(ctx, studentID)
	if err != nil {
		return nil, err
	}
	summary := Summarize(in, l.thresholds)
	return &summary, nil
}

// =============================================================================
// AD-HOC CREATION
// =============================================================================

// CreateLessonInput adds a single lesson outside package generation.
type CreateLessonInput struct {
	PackageID       PackageID
	Date            time.Time
	Time            TimeOfDay
	DurationMinutes int // 0 = inherit the package duration

	// Bonus marks a free lesson: no credit required, no wallet effect.
	Bonus bool

	// OverrideConflict lets an admin knowingly double-book the teacher.
	OverrideConflict bool

	Notes string
}

// Create inserts one scheduled lesson. A non-bonus lesson maps to an
// existing purchased-but-unused credit: it requires Available >= 1 and a
// non-blocked student.
func (l *Lessons) Create(ctx context.Context, in CreateLessonInput) (*LessonInstance, error) {
	var created *LessonInstance

	err := l.store.WithTx(ctx, func(s Store) error {
		pkg, err := s.GetPackage(ctx, in.PackageID)
		if err != nil {
			return err
		}
		if pkg == nil {
			return &NotFoundError{Kind: "package", ID: string(in.PackageID)}
		}

		if in.Date.IsZero() {
			return &ValidationError{Field: "date", Message: "date is required"}
		}
		if !in.Time.Valid() {
			return &ValidationError{Field: "time", Message: "time of day out of range"}
		}
		duration := in.DurationMinutes
		if duration == 0 {
			duration = pkg.DurationMinutes
		}
		if duration <= 0 {
			return &ValidationError{Field: "duration_minutes", Message: "duration must be positive"}
		}

		if !in.Bonus {
			inputs, err := s.WalletInputs(ctx, pkg.StudentID)
			if err != nil {
				return err
			}
			if w := Summarize(inputs, l.thresholds); !CanSchedule(w) {
				return &InsufficientCreditError{StudentID: pkg.StudentID, Status: w.Status, Available: w.Available}
			}
		}

		if !in.OverrideConflict {
			conflict, err := CheckSlot(ctx, s, pkg.TeacherID, in.Date, in.Time, "")
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflict
			}
		}

		li := LessonInstance{
			ID:               InstanceID(uuid.NewString()),
			PackageID:        pkg.ID,
			StudentID:        pkg.StudentID,
			TeacherID:        pkg.TeacherID,
			Date:             DateOf(in.Date),
			Time:             in.Time,
			DurationMinutes:  duration,
			Status:           LessonScheduled,
			Bonus:            in.Bonus,
			ConflictOverride: in.OverrideConflict,
			Notes:            in.Notes,
			CreatedAt:        time.Now().UTC(),
		}
		if err := s.InsertInstance(ctx, li); err != nil {
			return err
		}
		created = &li

		// A new live lesson may reopen a completed package.
		return refreshPackageStatus(ctx, s, pkg.ID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// =============================================================================
// ATTENDANCE MARKING
// =============================================================================

// Mark transitions a lesson to completed, absent or cancelled.
// Marking the current status again is an idempotent no-op. Rescheduling
// has its own operation because it needs a new slot.
//
// No blocked-student gate here: a held credit may always be consumed; the
// block only prevents NEW scheduling.
func (l *Lessons) Mark(ctx context.Context, id InstanceID, status LessonStatus, notes string) (*LessonInstance, *WalletSummary, error) {
	if !ValidLessonStatus(status) {
		return nil, nil, &ValidationError{Field: "status", Message: "unknown lesson status"}
	}
	if status == LessonScheduled || status == LessonRescheduled {
		return nil, nil, &ValidationError{Field: "status", Message: "use reschedule to move a lesson"}
	}

	var (
		updated LessonInstance
		wallet  WalletSummary
	)
	err := l.store.WithTx(ctx, func(s Store) error {
		li, err := s.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		if li == nil {
			return &NotFoundError{Kind: "lesson", ID: string(id)}
		}

		inputs, err := s.WalletInputs(ctx, li.StudentID)
		if err != nil {
			return err
		}
		wallet = Summarize(inputs, l.thresholds)

		if li.Status == status {
			// Idempotent: same wallet effect as marking once.
			updated = *li
			return nil
		}
		if !CanTransition(li.Status, status) {
			return &StateError{InstanceID: id, From: li.Status, To: status, Op: "mark"}
		}

		var notesPtr *string
		if notes != "" {
			notesPtr = &notes
		}
		if err := s.UpdateInstanceStatus(ctx, id, li.Status, status, notesPtr); err != nil {
			return err
		}

		wallet = wallet.Apply(TransitionEffect(li.Status, status, li.Bonus), l.thresholds)
		updated = *li
		updated.Status = status
		if notesPtr != nil {
			updated.Notes = *notesPtr
		}

		// Consuming the last live lesson may complete the package.
		return refreshPackageStatus(ctx, s, li.PackageID)
	})
	if err != nil {
		return nil, nil, err
	}
	return &updated, &wallet, nil
}

// =============================================================================
// RESCHEDULING
// =============================================================================

// Reschedule moves a live lesson to a new date and time. The instance
// keeps its held credit; the wallet is untouched. The moved lesson
// carries status rescheduled at its new slot and may be moved again.
func (l *Lessons) Reschedule(ctx context.Context, id InstanceID, newDate time.Time, newTime TimeOfDay) (*LessonInstance, error) {
	if newDate.IsZero() {
		return nil, &ValidationError{Field: "date", Message: "date is required"}
	}
	if !newTime.Valid() {
		return nil, &ValidationError{Field: "time", Message: "time of day out of range"}
	}

	var updated LessonInstance
	err := l.store.WithTx(ctx, func(s Store) error {
		li, err := s.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		if li == nil {
			return &NotFoundError{Kind: "lesson", ID: string(id)}
		}
		if !li.Status.Live() {
			return &StateError{InstanceID: id, From: li.Status, To: LessonRescheduled, Op: "reschedule"}
		}

		conflict, err := CheckSlot(ctx, s, li.TeacherID, newDate, newTime, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflict
		}

		if err := s.MoveInstance(ctx, id, li.Status, DateOf(newDate), newTime); err != nil {
			return err
		}

		updated = *li
		updated.Date = DateOf(newDate)
		updated.Time = newTime
		updated.Status = LessonRescheduled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// =============================================================================
// DELETION
// =============================================================================

// Delete removes a live lesson and releases its held credit. Completed
// and absent lessons are immutable history and cannot be deleted.
func (l *Lessons) Delete(ctx context.Context, id InstanceID) (*WalletSummary, error) {
	var wallet WalletSummary
	err := l.store.WithTx(ctx, func(s Store) error {
		li, err := s.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		if li == nil {
			return &NotFoundError{Kind: "lesson", ID: string(id)}
		}
		if !li.Status.Live() {
			return &StateError{InstanceID: id, From: li.Status, Op: "delete"}
		}

		inputs, err := s.WalletInputs(ctx, li.StudentID)
		if err != nil {
			return err
		}

		if err := s.DeleteInstance(ctx, id, li.Status); err != nil {
			return err
		}

		wallet = Summarize(inputs, l.thresholds).Apply(DeletionEffect(li.Status, li.Bonus), l.thresholds)
		return refreshPackageStatus(ctx, s, li.PackageID)
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// =============================================================================
// WALLET ADJUSTMENTS
// =============================================================================

// Adjust appends a manual wallet correction and returns the new summary.
// This is the admin override: status is still derived, only the balance
// inputs change.
func (l *Lessons) Adjust(ctx context.Context, studentID StudentID, delta int, reason, createdBy string) (*WalletSummary, error) {
	if delta == 0 {
		return nil, &ValidationError{Field: "delta", Message: "delta must be non-zero"}
	}
	if reason == "" {
		return nil, &ValidationError{Field: "reason", Message: "reason is required"}
	}

	var wallet WalletSummary
	err := l.store.WithTx(ctx, func(s Store) error {
		st, err := s.GetStudent(ctx, studentID)
		if err != nil {
			return err
		}
		if st == nil {
			return &NotFoundError{Kind: "student", ID: string(studentID)}
		}

		if err := s.AddAdjustment(ctx, Adjustment{
			ID:        uuid.NewString(),
			StudentID: studentID,
			Delta:     delta,
			Reason:    reason,
			CreatedBy: createdBy,
			CreatedAt: time.Now().UTC(),
		}); err != nil {
			return err
		}

		inputs, err := s.WalletInputs(ctx, studentID)
		if err != nil {
			return err
		}
		wallet = Summarize(inputs, l.thresholds)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}
