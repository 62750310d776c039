/*
conflict.go - Teacher double-booking detection

Equality is exact on (teacher, date, start time). Overlapping-but-offset
durations do NOT conflict; that is a documented simplification of the
scheduling model, not an oversight. Cancelled lessons never occupy a slot.

The check-then-write sequence has a TOCTOU gap across processes; callers
run it inside a store transaction, and the SQLite store backs it with a
unique index on live slots as the last line of defense.
*/
package academy

import (
	"context"
	"time"
)

// CheckSlot returns a ConflictError describing the occupying lesson if the
// teacher already has a non-cancelled instance at exactly date+time, or
// nil if the slot is free. excludeID skips the instance being moved.
func CheckSlot(ctx context.Context, s Store, teacherID TeacherID, date time.Time, tod TimeOfDay, excludeID InstanceID) (*ConflictError, error) {
	existing, err := s.ListInstancesByTeacherOn(ctx, teacherID, DateOf(date))
	if err != nil {
		return nil, err
	}

	for _, li := range existing {
		if li.ID == excludeID || li.Status == LessonCancelled {
			continue
		}
		if li.Time != tod {
			continue
		}

		ce := &ConflictError{
			TeacherID:  teacherID,
			Date:       DateOf(date),
			Time:       tod,
			InstanceID: li.ID,
			StudentID:  li.StudentID,
		}
		if st, err := s.GetStudent(ctx, li.StudentID); err == nil && st != nil {
			ce.StudentName = st.Name
		}
		return ce, nil
	}

	return nil, nil
}
