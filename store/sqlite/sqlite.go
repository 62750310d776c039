/*
Package sqlite provides the SQLite-backed implementation of the academy
storage interfaces.

PURPOSE:
  Implements academy.Store and academy.TxStore using SQLite. In
  production, the same patterns apply to PostgreSQL - only minor SQL
  dialect differences.

KEY TABLES:
  students:           Student records with assigned teacher
  teachers:           Teacher records with hourly rate
  packages:           Purchase events (money stored as decimal text)
  package_slots:      Weekly pattern rows per package
  lesson_instances:   The unit of scheduling truth
  wallet_adjustments: Append-only manual corrections

DATABASE-LEVEL INVARIANTS:
  - idx_unique_teacher_slot: a teacher cannot hold two non-cancelled
    lessons at the same (date, time), except lessons an admin created
    with the conflict override. The application checks conflicts first
    to produce a descriptive error; the index is the last line of
    defense against the check-then-write race.
  - Status transitions, moves and deletes are guarded by
    "WHERE status = ?" so a stale writer fails with
    academy.ErrConcurrentModification instead of silently overwriting.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened in WAL mode so
  readers do not block. With PostgreSQL, database-level concurrency
  control handles this instead.

USAGE:
  store, err := sqlite.New("./data/academy.db")  // or ":memory:"
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - academy/store.go: Interface definitions
  - academy/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/academy-engine/academy"
)

const (
	dateFormat = "2006-01-02"
	tsFormat   = time.RFC3339
)

// Store implements academy.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS students (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		teacher_id TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_students_teacher
		ON students(teacher_id);

	CREATE TABLE IF NOT EXISTS teachers (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		rate_per_lesson TEXT NOT NULL DEFAULT '0',
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS packages (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		lessons_purchased INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		start_date TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_packages_student
		ON packages(student_id);

	CREATE TABLE IF NOT EXISTS package_slots (
		package_id TEXT NOT NULL,
		day_of_week INTEGER NOT NULL,
		time_of_day INTEGER NOT NULL,
		PRIMARY KEY (package_id, day_of_week, time_of_day)
	);

	CREATE TABLE IF NOT EXISTS lesson_instances (
		id TEXT PRIMARY KEY,
		package_id TEXT NOT NULL,
		student_id TEXT NOT NULL,
		teacher_id TEXT NOT NULL,
		date TEXT NOT NULL,
		time_of_day INTEGER NOT NULL,
		duration_minutes INTEGER NOT NULL,
		status TEXT NOT NULL,
		bonus INTEGER NOT NULL DEFAULT 0,
		conflict_override INTEGER NOT NULL DEFAULT 0,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_instances_package
		ON lesson_instances(package_id);
	CREATE INDEX IF NOT EXISTS idx_instances_student
		ON lesson_instances(student_id, status);
	CREATE INDEX IF NOT EXISTS idx_instances_teacher_date
		ON lesson_instances(teacher_id, date);

	-- CRITICAL: a teacher holds at most one non-cancelled lesson per
	-- exact slot. Cancelled lessons free the slot; lessons an admin
	-- double-booked on purpose are exempt so the override can land.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_unique_teacher_slot
		ON lesson_instances(teacher_id, date, time_of_day)
		WHERE status != 'cancelled' AND conflict_override = 0;

	CREATE TABLE IF NOT EXISTS wallet_adjustments (
		id TEXT PRIMARY KEY,
		student_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		reason TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_adjustments_student
		ON wallet_adjustments(student_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// querier abstracts *sql.DB and *sql.Tx so every query can run either
// standalone or inside WithTx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

// =============================================================================
// STUDENTS
// =============================================================================

func (s *Store) SaveStudent(ctx context.Context, st academy.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveStudent(ctx, s.db, st)
}

func saveStudent(ctx context.Context, q querier, st academy.Student) error {
	createdAt := st.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO students (id, name, email, teacher_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, email = excluded.email,
			teacher_id = excluded.teacher_id, notes = excluded.notes`,
		st.ID, st.Name, st.Email, st.TeacherID, st.Notes, createdAt.Format(tsFormat))
	if err != nil {
		return fmt.Errorf("failed to save student: %w", err)
	}
	return nil
}

func (s *Store) GetStudent(ctx context.Context, id academy.StudentID) (*academy.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStudent(ctx, s.db, id)
}

func getStudent(ctx context.Context, q querier, id academy.StudentID) (*academy.Student, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, name, email, teacher_id, notes, created_at
		FROM students WHERE id = ?`, id)
	st, err := scanStudent(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return st, err
}

func (s *Store) ListStudents(ctx context.Context) ([]academy.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listStudents(ctx, s.db)
}

func listStudents(ctx context.Context, q querier) ([]academy.Student, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, email, teacher_id, notes, created_at
		FROM students ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list students: %w", err)
	}
	defer rows.Close()

	var out []academy.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func scanStudent(r rowScanner) (*academy.Student, error) {
	var (
		st           academy.Student
		email, notes sql.NullString
		createdAt    string
	)
	if err := r.Scan(&st.ID, &st.Name, &email, &st.TeacherID, &notes, &createdAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan student: %w", err)
	}
	st.Email = email.String
	st.Notes = notes.String
	st.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	return &st, nil
}

// =============================================================================
// TEACHERS
// =============================================================================

func (s *Store) SaveTeacher(ctx context.Context, t academy.Teacher) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTeacher(ctx, s.db, t)
}

func saveTeacher(ctx context.Context, q querier, t academy.Teacher) error {
	createdAt := t.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO teachers (id, name, rate_per_lesson, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, rate_per_lesson = excluded.rate_per_lesson`,
		t.ID, t.Name, t.RatePerLesson.String(), createdAt.Format(tsFormat))
	if err != nil {
		return fmt.Errorf("failed to save teacher: %w", err)
	}
	return nil
}

func (s *Store) GetTeacher(ctx context.Context, id academy.TeacherID) (*academy.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTeacher(ctx, s.db, id)
}

func getTeacher(ctx context.Context, q querier, id academy.TeacherID) (*academy.Teacher, error) {
	var (
		t         academy.Teacher
		rate      string
		createdAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT id, name, rate_per_lesson, created_at
		FROM teachers WHERE id = ?`, id).Scan(&t.ID, &t.Name, &rate, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get teacher: %w", err)
	}
	t.RatePerLesson = parseDecimal(rate)
	t.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	return &t, nil
}

func (s *Store) ListTeachers(ctx context.Context) ([]academy.Teacher, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTeachers(ctx, s.db)
}

func listTeachers(ctx context.Context, q querier) ([]academy.Teacher, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, rate_per_lesson, created_at
		FROM teachers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list teachers: %w", err)
	}
	defer rows.Close()

	var out []academy.Teacher
	for rows.Next() {
		var (
			t         academy.Teacher
			rate      string
			createdAt string
		)
		if err := rows.Scan(&t.ID, &t.Name, &rate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan teacher: %w", err)
		}
		t.RatePerLesson = parseDecimal(rate)
		t.CreatedAt, _ = time.Parse(tsFormat, createdAt)
		out = append(out, t)
	}
	return out, rows.Err()
}

// =============================================================================
// PACKAGES
// =============================================================================

func (s *Store) SavePackage(ctx context.Context, p academy.Package) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePackage(ctx, s.db, p)
}

func savePackage(ctx context.Context, q querier, p academy.Package) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO packages
		(id, student_id, teacher_id, amount_paid, lessons_purchased,
		 duration_minutes, start_date, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET status = excluded.status`,
		p.ID, p.StudentID, p.TeacherID, p.AmountPaid.String(), p.LessonsPurchased,
		p.DurationMinutes, p.StartDate.Format(dateFormat), p.Status,
		p.CreatedAt.Format(tsFormat))
	if err != nil {
		return fmt.Errorf("failed to save package: %w", err)
	}
	return nil
}

func (s *Store) GetPackage(ctx context.Context, id academy.PackageID) (*academy.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPackage(ctx, s.db, id)
}

func getPackage(ctx context.Context, q querier, id academy.PackageID) (*academy.Package, error) {
	row := q.QueryRowContext(ctx, `
		SELECT id, student_id, teacher_id, amount_paid, lessons_purchased,
		       duration_minutes, start_date, status, created_at
		FROM packages WHERE id = ?`, id)
	p, err := scanPackage(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (s *Store) ListPackagesByStudent(ctx context.Context, id academy.StudentID) ([]academy.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPackagesByStudent(ctx, s.db, id)
}

func listPackagesByStudent(ctx context.Context, q querier, id academy.StudentID) ([]academy.Package, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, student_id, teacher_id, amount_paid, lessons_purchased,
		       duration_minutes, start_date, status, created_at
		FROM packages WHERE student_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}
	defer rows.Close()

	var out []academy.Package
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func scanPackage(r rowScanner) (*academy.Package, error) {
	var (
		p                    academy.Package
		amount               string
		startDate, createdAt string
	)
	err := r.Scan(&p.ID, &p.StudentID, &p.TeacherID, &amount, &p.LessonsPurchased,
		&p.DurationMinutes, &startDate, &p.Status, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan package: %w", err)
	}
	p.AmountPaid = parseDecimal(amount)
	p.StartDate, _ = time.Parse(dateFormat, startDate)
	p.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	return &p, nil
}

func (s *Store) UpdatePackageStatus(ctx context.Context, id academy.PackageID, status academy.PackageStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updatePackageStatus(ctx, s.db, id, status)
}

func updatePackageStatus(ctx context.Context, q querier, id academy.PackageID, status academy.PackageStatus) error {
	res, err := q.ExecContext(ctx, `UPDATE packages SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update package status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &academy.NotFoundError{Kind: "package", ID: string(id)}
	}
	return nil
}

func (s *Store) SaveSlots(ctx context.Context, id academy.PackageID, slots []academy.WeeklySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveSlots(ctx, s.db, id, slots)
}

func saveSlots(ctx context.Context, q querier, id academy.PackageID, slots []academy.WeeklySlot) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM package_slots WHERE package_id = ?`, id); err != nil {
		return fmt.Errorf("failed to clear slots: %w", err)
	}
	for _, slot := range slots {
		_, err := q.ExecContext(ctx, `
			INSERT INTO package_slots (package_id, day_of_week, time_of_day)
			VALUES (?, ?, ?)`, id, int(slot.Day), int(slot.Time))
		if err != nil {
			return fmt.Errorf("failed to save slot: %w", err)
		}
	}
	return nil
}

func (s *Store) GetSlots(ctx context.Context, id academy.PackageID) ([]academy.WeeklySlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSlots(ctx, s.db, id)
}

func getSlots(ctx context.Context, q querier, id academy.PackageID) ([]academy.WeeklySlot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT day_of_week, time_of_day FROM package_slots
		WHERE package_id = ? ORDER BY day_of_week ASC, time_of_day ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get slots: %w", err)
	}
	defer rows.Close()

	var out []academy.WeeklySlot
	for rows.Next() {
		var day, tod int
		if err := rows.Scan(&day, &tod); err != nil {
			return nil, fmt.Errorf("failed to scan slot: %w", err)
		}
		out = append(out, academy.WeeklySlot{Day: time.Weekday(day), Time: academy.TimeOfDay(tod)})
	}
	return out, rows.Err()
}

// =============================================================================
// LESSON INSTANCES
// =============================================================================

const instanceColumns = `id, package_id, student_id, teacher_id, date, time_of_day,
       duration_minutes, status, bonus, conflict_override, notes, created_at`

func (s *Store) InsertInstance(ctx context.Context, li academy.LessonInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertInstance(ctx, s.db, li)
}

func insertInstance(ctx context.Context, q querier, li academy.LessonInstance) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO lesson_instances
		(id, package_id, student_id, teacher_id, date, time_of_day,
		 duration_minutes, status, bonus, conflict_override, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		li.ID, li.PackageID, li.StudentID, li.TeacherID,
		li.Date.Format(dateFormat), int(li.Time), li.DurationMinutes,
		li.Status, boolToInt(li.Bonus), boolToInt(li.ConflictOverride),
		li.Notes, li.CreatedAt.Format(tsFormat))
	if err != nil {
		if isUniqueConstraintError(err) {
			// Slot collision caught by idx_unique_teacher_slot.
			return &academy.ConflictError{TeacherID: li.TeacherID, Date: li.Date, Time: li.Time}
		}
		return fmt.Errorf("failed to insert lesson: %w", err)
	}
	return nil
}

func (s *Store) GetInstance(ctx context.Context, id academy.InstanceID) (*academy.LessonInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getInstance(ctx, s.db, id)
}

func getInstance(ctx context.Context, q querier, id academy.InstanceID) (*academy.LessonInstance, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+instanceColumns+` FROM lesson_instances WHERE id = ?`, id)
	li, err := scanInstance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return li, err
}

func queryInstances(ctx context.Context, q querier, query string, args ...any) ([]academy.LessonInstance, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lessons: %w", err)
	}
	defer rows.Close()

	var out []academy.LessonInstance
	for rows.Next() {
		li, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *li)
	}
	return out, rows.Err()
}

func (s *Store) ListInstancesByPackage(ctx context.Context, id academy.PackageID) ([]academy.LessonInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listInstancesByPackage(ctx, s.db, id)
}

func listInstancesByPackage(ctx context.Context, q querier, id academy.PackageID) ([]academy.LessonInstance, error) {
	return queryInstances(ctx, q, `
		SELECT `+instanceColumns+` FROM lesson_instances
		WHERE package_id = ? ORDER BY date ASC, time_of_day ASC`, id)
}

func (s *Store) ListInstancesByStudent(ctx context.Context, id academy.StudentID) ([]academy.LessonInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listInstancesByStudent(ctx, s.db, id)
}

func listInstancesByStudent(ctx context.Context, q querier, id academy.StudentID) ([]academy.LessonInstance, error) {
	return queryInstances(ctx, q, `
		SELECT `+instanceColumns+` FROM lesson_instances
		WHERE student_id = ? ORDER BY date ASC, time_of_day ASC`, id)
}

func (s *Store) ListInstancesByTeacherOn(ctx context.Context, id academy.TeacherID, date time.Time) ([]academy.LessonInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listInstancesByTeacherOn(ctx, s.db, id, date)
}

func listInstancesByTeacherOn(ctx context.Context, q querier, id academy.TeacherID, date time.Time) ([]academy.LessonInstance, error) {
	return queryInstances(ctx, q, `
		SELECT `+instanceColumns+` FROM lesson_instances
		WHERE teacher_id = ? AND date = ? ORDER BY time_of_day ASC`,
		id, date.Format(dateFormat))
}

func (s *Store) ListInstancesByTeacherRange(ctx context.Context, id academy.TeacherID, from, to time.Time) ([]academy.LessonInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listInstancesByTeacherRange(ctx, s.db, id, from, to)
}

func listInstancesByTeacherRange(ctx context.Context, q querier, id academy.TeacherID, from, to time.Time) ([]academy.LessonInstance, error) {
	return queryInstances(ctx, q, `
		SELECT `+instanceColumns+` FROM lesson_instances
		WHERE teacher_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC, time_of_day ASC`,
		id, from.Format(dateFormat), to.Format(dateFormat))
}

func scanInstance(r rowScanner) (*academy.LessonInstance, error) {
	var (
		li                   academy.LessonInstance
		date, createdAt      string
		tod, bonus, override int
		notes                sql.NullString
	)
	err := r.Scan(&li.ID, &li.PackageID, &li.StudentID, &li.TeacherID,
		&date, &tod, &li.DurationMinutes, &li.Status, &bonus, &override, &notes, &createdAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan lesson: %w", err)
	}
	li.Date, _ = time.Parse(dateFormat, date)
	li.Time = academy.TimeOfDay(tod)
	li.Bonus = bonus != 0
	li.ConflictOverride = override != 0
	li.Notes = notes.String
	li.CreatedAt, _ = time.Parse(tsFormat, createdAt)
	return &li, nil
}

func (s *Store) UpdateInstanceStatus(ctx context.Context, id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateInstanceStatus(ctx, s.db, id, expect, next, notes)
}

func updateInstanceStatus(ctx context.Context, q querier, id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	res, err := q.ExecContext(ctx, `
		UPDATE lesson_instances
		SET status = ?, notes = COALESCE(?, notes)
		WHERE id = ? AND status = ?`, next, notes, id, expect)
	if err != nil {
		return fmt.Errorf("failed to update lesson status: %w", err)
	}
	return checkGuardedWrite(ctx, q, id, res)
}

func (s *Store) MoveInstance(ctx context.Context, id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return moveInstance(ctx, s.db, id, expect, newDate, newTime)
}

func moveInstance(ctx context.Context, q querier, id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	res, err := q.ExecContext(ctx, `
		UPDATE lesson_instances
		SET date = ?, time_of_day = ?, status = ?
		WHERE id = ? AND status = ?`,
		newDate.Format(dateFormat), int(newTime), academy.LessonRescheduled, id, expect)
	if err != nil {
		if isUniqueConstraintError(err) {
			return &academy.ConflictError{Date: newDate, Time: newTime, InstanceID: id}
		}
		return fmt.Errorf("failed to move lesson: %w", err)
	}
	return checkGuardedWrite(ctx, q, id, res)
}

func (s *Store) DeleteInstance(ctx context.Context, id academy.InstanceID, expect academy.LessonStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteInstance(ctx, s.db, id, expect)
}

func deleteInstance(ctx context.Context, q querier, id academy.InstanceID, expect academy.LessonStatus) error {
	res, err := q.ExecContext(ctx,
		`DELETE FROM lesson_instances WHERE id = ? AND status = ?`, id, expect)
	if err != nil {
		return fmt.Errorf("failed to delete lesson: %w", err)
	}
	return checkGuardedWrite(ctx, q, id, res)
}

// checkGuardedWrite distinguishes "row gone" from "status changed under
// us" when a status-guarded write affected no rows.
func checkGuardedWrite(ctx context.Context, q querier, id academy.InstanceID, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var count int
	if err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lesson_instances WHERE id = ?`, id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return &academy.NotFoundError{Kind: "lesson", ID: string(id)}
	}
	return academy.ErrConcurrentModification
}

// =============================================================================
// WALLET
// =============================================================================

func (s *Store) AddAdjustment(ctx context.Context, a academy.Adjustment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return addAdjustment(ctx, s.db, a)
}

func addAdjustment(ctx context.Context, q querier, a academy.Adjustment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO wallet_adjustments (id, student_id, delta, reason, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.StudentID, a.Delta, a.Reason, a.CreatedBy, a.CreatedAt.Format(tsFormat))
	if err != nil {
		return fmt.Errorf("failed to add adjustment: %w", err)
	}
	return nil
}

func (s *Store) ListAdjustments(ctx context.Context, id academy.StudentID) ([]academy.Adjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listAdjustments(ctx, s.db, id)
}

func listAdjustments(ctx context.Context, q querier, id academy.StudentID) ([]academy.Adjustment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, student_id, delta, reason, created_by, created_at
		FROM wallet_adjustments WHERE student_id = ? ORDER BY created_at ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list adjustments: %w", err)
	}
	defer rows.Close()

	var out []academy.Adjustment
	for rows.Next() {
		var (
			a         academy.Adjustment
			createdBy sql.NullString
			createdAt string
		)
		if err := rows.Scan(&a.ID, &a.StudentID, &a.Delta, &a.Reason, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan adjustment: %w", err)
		}
		a.CreatedBy = createdBy.String
		a.CreatedAt, _ = time.Parse(tsFormat, createdAt)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) WalletInputs(ctx context.Context, id academy.StudentID) (academy.WalletInputs, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return walletInputs(ctx, s.db, id)
}

func walletInputs(ctx context.Context, q querier, id academy.StudentID) (academy.WalletInputs, error) {
	var in academy.WalletInputs

	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(lessons_purchased), 0) FROM packages WHERE student_id = ?`,
		id).Scan(&in.LessonsPurchased)
	if err != nil {
		return in, fmt.Errorf("failed to sum purchases: %w", err)
	}

	err = q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(delta), 0) FROM wallet_adjustments WHERE student_id = ?`,
		id).Scan(&in.Adjustments)
	if err != nil {
		return in, fmt.Errorf("failed to sum adjustments: %w", err)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM lesson_instances
		WHERE student_id = ? AND bonus = 0 GROUP BY status`, id)
	if err != nil {
		return in, fmt.Errorf("failed to count lessons: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status academy.LessonStatus
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return in, fmt.Errorf("failed to scan lesson count: %w", err)
		}
		switch {
		case status == academy.LessonCompleted:
			in.Completed += count
		case status == academy.LessonAbsent:
			in.Absent += count
		case status.Live():
			in.Live += count
		}
	}
	return in, rows.Err()
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within one database transaction. The academy.Store
// passed to fn routes every query through the transaction.
func (s *Store) WithTx(ctx context.Context, fn func(academy.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&txStore{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// txStore is the transactional view handed to WithTx callbacks.
type txStore struct {
	tx *sql.Tx
}

var _ academy.Store = (*txStore)(nil)

func (t *txStore) SaveStudent(ctx context.Context, st academy.Student) error {
	return saveStudent(ctx, t.tx, st)
}
func (t *txStore) GetStudent(ctx context.Context, id academy.StudentID) (*academy.Student, error) {
	return getStudent(ctx, t.tx, id)
}
func (t *txStore) ListStudents(ctx context.Context) ([]academy.Student, error) {
	return listStudents(ctx, t.tx)
}
func (t *txStore) SaveTeacher(ctx context.Context, th academy.Teacher) error {
	return saveTeacher(ctx, t.tx, th)
}
func (t *txStore) GetTeacher(ctx context.Context, id academy.TeacherID) (*academy.Teacher, error) {
	return getTeacher(ctx, t.tx, id)
}
func (t *txStore) ListTeachers(ctx context.Context) ([]academy.Teacher, error) {
	return listTeachers(ctx, t.tx)
}
func (t *txStore) SavePackage(ctx context.Context, p academy.Package) error {
	return savePackage(ctx, t.tx, p)
}
func (t *txStore) GetPackage(ctx context.Context, id academy.PackageID) (*academy.Package, error) {
	return getPackage(ctx, t.tx, id)
}
func (t *txStore) ListPackagesByStudent(ctx context.Context, id academy.StudentID) ([]academy.Package, error) {
	return listPackagesByStudent(ctx, t.tx, id)
}
func (t *txStore) UpdatePackageStatus(ctx context.Context, id academy.PackageID, status academy.PackageStatus) error {
	return updatePackageStatus(ctx, t.tx, id, status)
}
func (t *txStore) SaveSlots(ctx context.Context, id academy.PackageID, slots []academy.WeeklySlot) error {
	return saveSlots(ctx, t.tx, id, slots)
}
func (t *txStore) GetSlots(ctx context.Context, id academy.PackageID) ([]academy.WeeklySlot, error) {
	return getSlots(ctx, t.tx, id)
}
func (t *txStore) InsertInstance(ctx context.Context, li academy.LessonInstance) error {
	return insertInstance(ctx, t.tx, li)
}
func (t *txStore) GetInstance(ctx context.Context, id academy.InstanceID) (*academy.LessonInstance, error) {
	return getInstance(ctx, t.tx, id)
}
func (t *txStore) ListInstancesByPackage(ctx context.Context, id academy.PackageID) ([]academy.LessonInstance, error) {
	return listInstancesByPackage(ctx, t.tx, id)
}
func (t *txStore) ListInstancesByStudent(ctx context.Context, id academy.StudentID) ([]academy.LessonInstance, error) {
	return listInstancesByStudent(ctx, t.tx, id)
}
func (t *txStore) ListInstancesByTeacherOn(ctx context.Context, id academy.TeacherID, date time.Time) ([]academy.LessonInstance, error) {
	return listInstancesByTeacherOn(ctx, t.tx, id, date)
}
func (t *txStore) ListInstancesByTeacherRange(ctx context.Context, id academy.TeacherID, from, to time.Time) ([]academy.LessonInstance, error) {
	return listInstancesByTeacherRange(ctx, t.tx, id, from, to)
}
func (t *txStore) UpdateInstanceStatus(ctx context.Context, id academy.InstanceID, expect, next academy.LessonStatus, notes *string) error {
	return updateInstanceStatus(ctx, t.tx, id, expect, next, notes)
}
func (t *txStore) MoveInstance(ctx context.Context, id academy.InstanceID, expect academy.LessonStatus, newDate time.Time, newTime academy.TimeOfDay) error {
	return moveInstance(ctx, t.tx, id, expect, newDate, newTime)
}
func (t *txStore) DeleteInstance(ctx context.Context, id academy.InstanceID, expect academy.LessonStatus) error {
	return deleteInstance(ctx, t.tx, id, expect)
}
func (t *txStore) AddAdjustment(ctx context.Context, a academy.Adjustment) error {
	return addAdjustment(ctx, t.tx, a)
}
func (t *txStore) ListAdjustments(ctx context.Context, id academy.StudentID) ([]academy.Adjustment, error) {
	return listAdjustments(ctx, t.tx, id)
}
func (t *txStore) WalletInputs(ctx context.Context, id academy.StudentID) (academy.WalletInputs, error) {
	return walletInputs(ctx, t.tx, id)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
