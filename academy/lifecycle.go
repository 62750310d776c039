/*
lifecycle.go - Package creation, renewal and derived completion

PURPOSE:
  Orchestrates a purchase: persists the package row and its weekly
  pattern, expands the pattern into dated instances (expander.go), and
  persists them - all in one transaction. The purchased credit enters the
  wallet immediately (packages are a wallet input); each generated
  instance is a soft hold against it, not a separate debit.

COMPLETION:
  Package status is DERIVED: a package is completed when none of its
  instances are live. The check runs after instance mutations and on
  demand, not transactionally with every update - callers tolerate
  eventual consistency of package status. Manual close is also allowed.
*/
package academy

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Packages manages the package lifecycle.
type Packages struct {
	store      TxStore
	thresholds Thresholds
}

func NewPackages(store TxStore, thresholds Thresholds) *Packages {
	return &Packages{store: store, thresholds: thresholds}
}

// =============================================================================
// CREATE / RENEW
// =============================================================================

type CreateOrRenewInput struct {
	StudentID        StudentID
	TeacherID        TeacherID
	AmountPaid       decimal.Decimal
	LessonsPurchased int
	DurationMinutes  int
	StartDate        time.Time

	// Slots may be empty on renewal: the previous package's pattern is
	// copied. A first purchase must supply a pattern.
	Slots []WeeklySlot
}

type CreateOrRenewResult struct {
	Package   Package
	Instances []LessonInstance
	Wallet    WalletSummary
}

// CreateOrRenew records a purchase and generates its schedule.
// All-or-nothing: a conflict on any generated slot aborts the whole
// purchase with a ConflictError naming the occupying lesson.
func (p *Packages) CreateOrRenew(ctx context.Context, in CreateOrRenewInput) (*CreateOrRenewResult, error) {
	if in.StartDate.IsZero() {
		return nil, &ValidationError{Field: "start_date", Message: "start date is required"}
	}
	if in.AmountPaid.IsNegative() {
		return nil, &ValidationError{Field: "amount_paid", Message: "amount must not be negative"}
	}

	var result CreateOrRenewResult
	err := p.store.WithTx(ctx, func(s Store) error {
		student, err := s.GetStudent(ctx, in.StudentID)
		if err != nil {
			return err
		}
		if student == nil {
			return &NotFoundError{Kind: "student", ID: string(in.StudentID)}
		}
		teacher, err := s.GetTeacher(ctx, in.TeacherID)
		if err != nil {
			return err
		}
		if teacher == nil {
			return &NotFoundError{Kind: "teacher", ID: string(in.TeacherID)}
		}

		slots := in.Slots
		if len(slots) == 0 {
			if slots, err = p.previousSlots(ctx, s, in.StudentID); err != nil {
				return err
			}
		}

		instances, err := Expand(slots, in.LessonsPurchased, in.StartDate, in.DurationMinutes)
		if err != nil {
			return err
		}

		pkg := Package{
			ID:               PackageID(uuid.NewString()),
			StudentID:        in.StudentID,
			TeacherID:        in.TeacherID,
			AmountPaid:       in.AmountPaid,
			LessonsPurchased: in.LessonsPurchased,
			DurationMinutes:  in.DurationMinutes,
			StartDate:        DateOf(in.StartDate),
			Status:           PackageActive,
			CreatedAt:        time.Now().UTC(),
		}
		if err := s.SavePackage(ctx, pkg); err != nil {
			return err
		}
		if err := s.SaveSlots(ctx, pkg.ID, slots); err != nil {
			return err
		}

		for i := range instances {
			li := &instances[i]
			conflict, err := CheckSlot(ctx, s, in.TeacherID, li.Date, li.Time, "")
			if err != nil {
				return err
			}
			if conflict != nil {
				return conflict
			}

			li.ID = InstanceID(uuid.NewString())
			li.PackageID = pkg.ID
			li.StudentID = in.StudentID
			li.TeacherID = in.TeacherID
			li.CreatedAt = pkg.CreatedAt
			if err := s.InsertInstance(ctx, *li); err != nil {
				return err
			}
		}

		// Earlier packages with nothing live left are closed as part of
		// the renewal.
		if err := p.refreshStudentPackages(ctx, s, in.StudentID, pkg.ID); err != nil {
			return err
		}

		inputs, err := s.WalletInputs(ctx, in.StudentID)
		if err != nil {
			return err
		}

		result = CreateOrRenewResult{
			Package:   pkg,
			Instances: instances,
			Wallet:    Summarize(inputs, p.thresholds),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// previousSlots copies the weekly pattern from the student's most recent
// package, for renewals that keep the same times.
func (p *Packages) previousSlots(ctx context.Context, s Store, studentID StudentID) ([]WeeklySlot, error) {
	pkgs, err := s.ListPackagesByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(pkgs) == 0 {
		return nil, &ValidationError{Field: "weekly_slots", Message: "weekly pattern is required for a first purchase"}
	}

	sort.Slice(pkgs, func(i, j int) bool { return pkgs[i].CreatedAt.After(pkgs[j].CreatedAt) })
	slots, err := s.GetSlots(ctx, pkgs[0].ID)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return nil, &ValidationError{Field: "weekly_slots", Message: "previous package has no weekly pattern to copy"}
	}
	return slots, nil
}

// =============================================================================
// DERIVED COMPLETION
// =============================================================================

// RefreshStatus re-derives one package's status and returns the package.
func (p *Packages) RefreshStatus(ctx context.Context, id PackageID) (*Package, error) {
	var pkg *Package
	err := p.store.WithTx(ctx, func(s Store) error {
		if err := refreshPackageStatus(ctx, s, id); err != nil {
			return err
		}
		var err error
		pkg, err = s.GetPackage(ctx, id)
		if err != nil {
			return err
		}
		if pkg == nil {
			return &NotFoundError{Kind: "package", ID: string(id)}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

// Close marks a package completed regardless of remaining instances
// (manual close). Live instances keep their held credits until marked or
// deleted individually.
func (p *Packages) Close(ctx context.Context, id PackageID) (*Package, error) {
	var pkg *Package
	err := p.store.WithTx(ctx, func(s Store) error {
		var err error
		pkg, err = s.GetPackage(ctx, id)
		if err != nil {
			return err
		}
		if pkg == nil {
			return &NotFoundError{Kind: "package", ID: string(id)}
		}
		if pkg.Status == PackageCompleted {
			return nil
		}
		pkg.Status = PackageCompleted
		return s.UpdatePackageStatus(ctx, id, PackageCompleted)
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func (p *Packages) refreshStudentPackages(ctx context.Context, s Store, studentID StudentID, skip PackageID) error {
	pkgs, err := s.ListPackagesByStudent(ctx, studentID)
	if err != nil {
		return err
	}
	for _, pkg := range pkgs {
		if pkg.ID == skip {
			continue
		}
		if err := refreshPackageStatus(ctx, s, pkg.ID); err != nil {
			return err
		}
	}
	return nil
}

// refreshPackageStatus derives a package's status from its instances:
// completed when nothing live remains, active otherwise (an ad-hoc lesson
// can reopen a completed package).
func refreshPackageStatus(ctx context.Context, s Store, id PackageID) error {
	pkg, err := s.GetPackage(ctx, id)
	if err != nil {
		return err
	}
	if pkg == nil {
		return &NotFoundError{Kind: "package", ID: string(id)}
	}

	instances, err := s.ListInstancesByPackage(ctx, id)
	if err != nil {
		return err
	}

	live := 0
	for _, li := range instances {
		if li.Status.Live() {
			live++
		}
	}

	next := pkg.Status
	if live == 0 {
		next = PackageCompleted
	} else {
		next = PackageActive
	}
	if next == pkg.Status {
		return nil
	}
	return s.UpdatePackageStatus(ctx, id, next)
}
