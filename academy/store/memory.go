// Package store provides an in-memory academy.Store implementation,
// used by tests and local development.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/academy-engine/academy"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	students    map[academy.StudentID]academy.Student
	teachers    map[academy.TeacherID]academy.Teacher
	packages    map[academy.PackageID]academy.Package
	slots       map[academy.PackageID][]academy.WeeklySlot
	instances   map[academy.InstanceID]academy.LessonInstance
	adjustments map[academy.StudentID][]academy.Adjustment
}

func NewMemory() *Memory {
	return &Memory{
		students:    make(map[academy.StudentID]academy.Student),
		teachers:    make(map[academy.TeacherID]academy.Teacher),
		packages:    make(map[academy.PackageID]academy.Package),
		slots:       make(map[academy.PackageID][]academy.WeeklySlot),
		instances:   make(map[academy.InstanceID]academy.LessonInstance),
		adjustments: make(map[academy.StudentID][]academy.Adjustment),
	}
}

var _ academy.TxStore = (*Memory)(nil)

// =============================================================================
// STUDENTS / TEACHERS
// =============================================================================

func (m *Memory) SaveStudent(_ context.Context, s academy.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.students[s.ID] = s
	return nil
}

func (m *Memory) GetStudent(_ context.Context, id academy.StudentID) (*academy.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getStudentLocked(id)
}

func (m *Memory) getStudentLocked(id academy.StudentID) (*academy.Student, error) {
	if s, ok := m.students[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (m *Memory) ListStudents(_ context.Context) ([]academy.Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]academy.Student, 0, len(m.students))
	for _, s := range m.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) SaveTeacher(_ context.Context, t academy.Teacher) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teachers[t.ID] = t
	return nil
}

func (m *Memory) GetTeacher(_ context.Context, id academy.TeacherID) (*academy.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getTeacherLocked(id)
}

func (m *Memory) getTeacherLocked(id academy.TeacherID) (*academy.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (m *Memory) ListTeachers(_ context.Context) ([]academy.Teacher, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]academy.Teacher, 0, len(m.teachers))
	for _, t := range m.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// =============================================================================
// PACKAGES
// =============================================================================

func (m *Memory) SavePackage(_ context.Context, p academy.Package) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packages[p.ID] = p
	return nil
}

func (m *Memory) GetPackage(_ context.Context, id academy.PackageID) (*academy.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPackageLocked(id)
}

func (m *Memory) getPackageLocked(id academy.PackageID) (*academy.Package, error) {
	if p, ok := m.packages[id]; ok {
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListPackagesByStudent(_ context.Context, id academy.StudentID) ([]academy.Package, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPackagesByStudentLocked(id)
}

func (m *Memory) listPackagesByStudentLocked(id academy.StudentID) ([]academy.Package, error) {
	var out []academy.Package
	for _, p := range m.packages {
		if p.StudentID == id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) UpdatePackageStatus(_ context.Context, id academy.PackageID, status academy.PackageStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updatePackageStatusLocked(id, status)
}

func (m *Memory) updatePackageStatusLocked(id academy.PackageID, status academy.PackageStatus) error {
	p, ok := m.packages[id]
	if !ok {
		return &academy.NotFoundError{Kind: "package", ID: string(id)}
	}
	p.Status = status
	m.packages[id] = p
	return nil
}

func (m *Memory) SaveSlots(_ context.Context, id academy.PackageID, slots []academy.WeeklySlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[id] = append([]academy.WeeklySlot(nil), slots...)
	return nil
}

func (m *Memory) GetSlots(_ context.Context, id academy.PackageID) ([]academy.WeeklySlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSlotsLocked(id)
}

func (m *Memory) getSlotsLocked(id academy.PackageID) ([]academy.WeeklySlot, error) {
	return append([]academy.WeeklySlot(nil), m.slots[id]...), nil
}

// =============================================================================
// LESSON INSTANCES
// =============================================================================

func (m *Memory) InsertInstance(_ context.Context, li academy.LessonInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[li.ID] = li
	return nil
}

func (m *Memory) GetInstance(_ context.Context, id academy.InstanceID) (*academy.LessonInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getInstanceLocked(id)
}

func (m *Memory) getInstanceLocked(id academy.InstanceID) (*academy.LessonInstance, error) {
	if li, ok := m.instances[id]; ok {
		return &li, nil
	}
	return nil, nil
}

func (m *Memory) ListInstancesByPackage(_ context.Context, id academy.PackageID) ([]academy.LessonInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterInstancesLocked(func(li academy.LessonInstance) bool { return li.PackageID == id }), nil
}

func (m *Memory) ListInstancesByStudent(_ context.Context, id academy.StudentID) ([]academy.LessonInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterInstancesLocked(func(li academy.LessonInstance) bool { return li.StudentID == id }), nil
}

func (m *Memory) ListInstancesByTeacherOn(_ context.Context, id academy.TeacherID, date time.Time) ([]academy.LessonInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterInstancesLocked(func(li academy.LessonInstance) bool {
		return li.TeacherID == id && academy.SameDay(li.Date, date)
	}), nil
}

func (m *Memory) ListInstancesByTeacherRange(_ context.Context, id academy.TeacherID, from, to time.Time) ([]academy.LessonInstance, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.filterInstancesLocked(func(li academy.LessonInstance) bool {
		return li.TeacherID == id && !li.Date.Before(from) && !li.Date.After(to)
	}), nil
}

func (m *Memory) filterInstancesLocked(keep func(academy.LessonInstance) bool) []academy.LessonInstance {
	var out []academy.LessonInstance
	for _, li := range m.instances {
		if keep(li) {
			out = append(out, li)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Time < out[j].Time
	})
	return out
}

func (m *Memory) UpdateInstanceStatus(_ context.Context, id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateInstanceStatusLocked(id, expect, next, notes)
}

func (m *Memory) updateInstanceStatusLocked(id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	li, ok := m.instances[id]
	if !ok {
		return &academy.NotFoundError{Kind: "lesson", ID: string(id)}
	}
	if li.Status != expect {
		return academy.ErrConcurrentModification
	}
	li.Status = next
	if notes != nil {
		li.Notes = *notes
	}
	m.instances[id] = li
	return nil
}

func (m *Memory) MoveInstance(_ context.Context, id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.moveInstanceLocked(id, expect, newDate, newTime)
}

func (m *Memory) moveInstanceLocked(id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	li, ok := m.instances[id]
	if !ok {
		return &academy.NotFoundError{Kind: "lesson", ID: string(id)}
	}
	if li.Status != expect {
		return academy.ErrConcurrentModification
	}
	li.Date = newDate
	li.Time = newTime
	li.Status = academy.LessonRescheduled
	m.instances[id] = li
	return nil
}

func (m *Memory) DeleteInstance(_ context.Context, id academy.InstanceID, expect academy.LessonStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleteInstanceLocked(id, expect)
}

func (m *Memory) deleteInstanceLocked(id academy.InstanceID, expect academy.LessonStatus) error {
	li, ok := m.instances[id]
	if !ok {
		return &academy.NotFoundError{Kind: "lesson", ID: string(id)}
	}
	if li.Status != expect {
		return academy.ErrConcurrentModification
	}
	delete(m.instances, id)
	return nil
}

// =============================================================================
// WALLET
// =============================================================================

func (m *Memory) AddAdjustment(_ context.Context, a academy.Adjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.adjustments[a.StudentID] = append(m.adjustments[a.StudentID], a)
	return nil
}

func (m *Memory) ListAdjustments(_ context.Context, id academy.StudentID) ([]academy.Adjustment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]academy.Adjustment(nil), m.adjustments[id]...), nil
}

func (m *Memory) WalletInputs(_ context.Context, id academy.StudentID) (academy.WalletInputs, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.walletInputsLocked(id)
}

func (m *Memory) walletInputsLocked(id academy.StudentID) (academy.WalletInputs, error) {
	var in academy.WalletInputs
	for _, p := range m.packages {
		if p.StudentID == id {
			in.LessonsPurchased += p.LessonsPurchased
		}
	}
	for _, a := range m.adjustments[id] {
		in.Adjustments += a.Delta
	}
	for _, li := range m.instances {
		if li.StudentID != id || li.Bonus {
			continue
		}
		switch {
		case li.Status == academy.LessonCompleted:
			in.Completed++
		case li.Status == academy.LessonAbsent:
			in.Absent++
		case li.Status.Live():
			in.Live++
		}
	}
	return in, nil
}

// =============================================================================
// TRANSACTIONS - Snapshot and restore on error
// =============================================================================

// WithTx simulates a transaction with a full snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(academy.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.snapshotLocked()
	if err := fn(&txView{parent: m}); err != nil {
		m.restoreLocked(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	students    map[academy.StudentID]academy.Student
	teachers    map[academy.TeacherID]academy.Teacher
	packages    map[academy.PackageID]academy.Package
	slots       map[academy.PackageID][]academy.WeeklySlot
	instances   map[academy.InstanceID]academy.LessonInstance
	adjustments map[academy.StudentID][]academy.Adjustment
}

func (m *Memory) snapshotLocked() memorySnapshot {
	s := memorySnapshot{
		students:    make(map[academy.StudentID]academy.Student, len(m.students)),
		teachers:    make(map[academy.TeacherID]academy.Teacher, len(m.teachers)),
		packages:    make(map[academy.PackageID]academy.Package, len(m.packages)),
		slots:       make(map[academy.PackageID][]academy.WeeklySlot, len(m.slots)),
		instances:   make(map[academy.InstanceID]academy.LessonInstance, len(m.instances)),
		adjustments: make(map[academy.StudentID][]academy.Adjustment, len(m.adjustments)),
	}
	for k, v := range m.students {
		s.students[k] = v
	}
	for k, v := range m.teachers {
		s.teachers[k] = v
	}
	for k, v := range m.packages {
		s.packages[k] = v
	}
	for k, v := range m.slots {
		s.slots[k] = append([]academy.WeeklySlot(nil), v...)
	}
	for k, v := range m.instances {
		s.instances[k] = v
	}
	for k, v := range m.adjustments {
		s.adjustments[k] = append([]academy.Adjustment(nil), v...)
	}
	return s
}

func (m *Memory) restoreLocked(s memorySnapshot) {
	m.students = s.students
	m.teachers = s.teachers
	m.packages = s.packages
	m.slots = s.slots
	m.instances = s.instances
	m.adjustments = s.adjustments
}

// txView accesses the parent's state directly; the parent holds the lock
// for the duration of WithTx.
type txView struct {
	parent *Memory
}

var _ academy.Store = (*txView)(nil)

func (tv *txView) SaveStudent(_ context.Context, s academy.Student) error {
	tv.parent.students[s.ID] = s
	return nil
}

func (tv *txView) GetStudent(_ context.Context, id academy.StudentID) (*academy.Student, error) {
	return tv.parent.getStudentLocked(id)
}

func (tv *txView) ListStudents(_ context.Context) ([]academy.Student, error) {
	out := make([]academy.Student, 0, len(tv.parent.students))
	for _, s := range tv.parent.students {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (tv *txView) SaveTeacher(_ context.Context, t academy.Teacher) error {
	tv.parent.teachers[t.ID] = t
	return nil
}

func (tv *txView) GetTeacher(_ context.Context, id academy.TeacherID) (*academy.Teacher, error) {
	return tv.parent.getTeacherLocked(id)
}

func (tv *txView) ListTeachers(_ context.Context) ([]academy.Teacher, error) {
	out := make([]academy.Teacher, 0, len(tv.parent.teachers))
	for _, t := range tv.parent.teachers {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (tv *txView) SavePackage(_ context.Context, p academy.Package) error {
	tv.parent.packages[p.ID] = p
	return nil
}

func (tv *txView) GetPackage(_ context.Context, id academy.PackageID) (*academy.Package, error) {
	return tv.parent.getPackageLocked(id)
}

func (tv *txView) ListPackagesByStudent(_ context.Context, id academy.StudentID) ([]academy.Package, error) {
	return tv.parent.listPackagesByStudentLocked(id)
}

func (tv *txView) UpdatePackageStatus(_ context.Context, id academy.PackageID, status academy.PackageStatus) error {
	return tv.parent.updatePackageStatusLocked(id, status)
}

func (tv *txView) SaveSlots(_ context.Context, id academy.PackageID, slots []academy.WeeklySlot) error {
	tv.parent.slots[id] = append([]academy.WeeklySlot(nil), slots...)
	return nil
}

func (tv *txView) GetSlots(_ context.Context, id academy.PackageID) ([]academy.WeeklySlot, error) {
	return tv.parent.getSlotsLocked(id)
}

func (tv *txView) InsertInstance(_ context.Context, li academy.LessonInstance) error {
	tv.parent.instances[li.ID] = li
	return nil
}

func (tv *txView) GetInstance(_ context.Context, id academy.InstanceID) (*academy.LessonInstance, error) {
	return tv.parent.getInstanceLocked(id)
}

func (tv *txView) ListInstancesByPackage(_ context.Context, id academy.PackageID) ([]academy.LessonInstance, error) {
	return tv.parent.filterInstancesLocked(func(li academy.LessonInstance) bool { return li.PackageID == id }), nil
}

func (tv *txView) ListInstancesByStudent(_ context.Context, id academy.StudentID) ([]academy.LessonInstance, error) {
	return tv.parent.filterInstancesLocked(func(li academy.LessonInstance) bool { return li.StudentID == id }), nil
}

func (tv *txView) ListInstancesByTeacherOn(_ context.Context, id academy.TeacherID, date time.Time) ([]academy.LessonInstance, error) {
	return tv.parent.filterInstancesLocked(func(li academy.LessonInstance) bool {
		return li.TeacherID == id && academy.SameDay(li.Date, date)
	}), nil
}

func (tv *txView) ListInstancesByTeacherRange(_ context.Context, id academy.TeacherID, from, to time.Time) ([]academy.LessonInstance, error) {
	return tv.parent.filterInstancesLocked(func(li academy.LessonInstance) bool {
		return li.TeacherID == id && !li.Date.Before(from) && !li.Date.After(to)
	}), nil
}

func (tv *txView) UpdateInstanceStatus(_ context.Context, id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	return tv.parent.updateInstanceStatusLocked(id, expect, next, notes)
}

func (tv *txView) MoveInstance(_ context.Context, id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	return tv.parent.moveInstanceLocked(id, expect, newDate, newTime)
}

func (tv *txView) DeleteInstance(_ context.Context, id academy.InstanceID, expect academy.LessonStatus) error {
	return tv.parent.deleteInstanceLocked(id, expect)
}

func (tv *txView) AddAdjustment(_ context.Context, a academy.Adjustment) error {
	tv.parent.adjustments[a.StudentID] = append(tv.parent.adjustments[a.StudentID], a)
	return nil
}

func (tv *txView) ListAdjustments(_ context.Context, id academy.StudentID) ([]academy.Adjustment, error) {
	return append([]academy.Adjustment(nil), tv.parent.adjustments[id]...), nil
}

func (tv *txView) WalletInputs(_ context.Context, id academy.StudentID) (academy.WalletInputs, error) {
	return tv.parent.walletInputsLocked(id)
}
