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
// PURCHASE TESTS
// =============================================================================

func TestCreateOrRenew_GeneratesScheduleAndWallet(t *testing.T) {
	// GIVEN: A student with no history buying 8 lessons, Tue/Thu weekly
	// WHEN: The purchase is recorded
	// THEN: 8 dated instances exist and the wallet holds 8 reserved credits

	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	assert.Equal(t, academy.PackageActive, result.Package.Status)
	assert.Equal(t, 8, result.Package.LessonsPurchased)
	require.Len(t, result.Instances, 8)

	for _, li := range result.Instances {
		assert.NotEmpty(t, li.ID)
		assert.Equal(t, result.Package.ID, li.PackageID)
		assert.Equal(t, academy.StudentID("s-boris"), li.StudentID)
		assert.Equal(t, academy.TeacherID("t-anna"), li.TeacherID)
		assert.Equal(t, academy.LessonScheduled, li.Status)
	}

	assert.Equal(t, 8, result.Wallet.Balance)
	assert.Equal(t, 8, result.Wallet.Reserved)
	assert.Equal(t, 0, result.Wallet.Available)

	// Everything was persisted, not just returned
	stored, err := f.store.ListInstancesByPackage(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Len(t, stored, 8)

	slots, err := f.store.GetSlots(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestCreateOrRenew_FirstPurchaseNeedsPattern(t *testing.T) {
	f := newFixture(t)

	_, err := f.packages.CreateOrRenew(context.Background(), academy.CreateOrRenewInput{
		StudentID:        "s-boris",
		TeacherID:        "t-anna",
		AmountPaid:       decimal.NewFromInt(240),
		LessonsPurchased: 8,
		DurationMinutes:  60,
		StartDate:        monday,
	})
	assert.ErrorIs(t, err, academy.ErrValidation)
}

func TestCreateOrRenew_RenewalCopiesPreviousPattern(t *testing.T) {
	// GIVEN: A finished package with a Tue/Thu pattern
	// WHEN: Renewing without naming slots
	// THEN: The previous pattern is reused

	f := newFixture(t)
	first := f.purchase(t)
	ctx := context.Background()

	// Finish the first package so its slots are free again
	for _, li := range first.Instances {
		_, _, err := f.lessons.Mark(ctx, li.ID, academy.LessonCompleted, "")
		require.NoError(t, err)
	}

	renewal, err := f.packages.CreateOrRenew(ctx, academy.CreateOrRenewInput{
		StudentID:        "s-boris",
		TeacherID:        "t-anna",
		AmountPaid:       decimal.NewFromInt(240),
		LessonsPurchased: 4,
		DurationMinutes:  60,
		StartDate:        academy.NewDate(2025, time.April, 1),
	})
	require.NoError(t, err)
	require.Len(t, renewal.Instances, 4)

	slots, err := f.store.GetSlots(ctx, renewal.Package.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []academy.WeeklySlot{
		{Day: time.Tuesday, Time: mustTime(t, "18:00")},
		{Day: time.Thursday, Time: mustTime(t, "19:00")},
	}, slots)

	for _, li := range renewal.Instances {
		day := li.Date.Weekday()
		assert.True(t, day == time.Tuesday || day == time.Thursday)
	}
}

func TestCreateOrRenew_ConflictAbortsWholePurchase(t *testing.T) {
	// GIVEN: Another student already holds one of the slots the new
	//        package would generate
	// WHEN: The purchase is recorded
	// THEN: The whole purchase fails; no package, slots or instances remain

	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.SaveStudent(ctx, academy.Student{
		ID: "s-clara", Name: "Clara", TeacherID: "t-anna",
	}))

	// Clara occupies Anna's Tue 18:00 two weeks in
	require.NoError(t, f.store.InsertInstance(ctx, academy.LessonInstance{
		ID:              "li-clara",
		PackageID:       "pkg-clara",
		StudentID:       "s-clara",
		TeacherID:       "t-anna",
		Date:            academy.NewDate(2025, time.March, 11),
		Time:            mustTime(t, "18:00"),
		DurationMinutes: 60,
		Status:          academy.LessonScheduled,
	}))

	_, err := f.packages.CreateOrRenew(ctx, academy.CreateOrRenewInput{
		StudentID:        "s-boris",
		TeacherID:        "t-anna",
		AmountPaid:       decimal.NewFromInt(240),
		LessonsPurchased: 8,
		DurationMinutes:  60,
		StartDate:        monday,
		Slots: []academy.WeeklySlot{
			{Day: time.Tuesday, Time: mustTime(t, "18:00")},
			{Day: time.Thursday, Time: mustTime(t, "19:00")},
		},
	})
	assert.ErrorIs(t, err, academy.ErrConflict)

	var ce *academy.ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Clara", ce.StudentName)

	// All-or-nothing: no partial schedule survives
	pkgs, err := f.store.ListPackagesByStudent(ctx, "s-boris")
	require.NoError(t, err)
	assert.Empty(t, pkgs)

	instances, err := f.store.ListInstancesByStudent(ctx, "s-boris")
	require.NoError(t, err)
	assert.Empty(t, instances)
}

func TestCreateOrRenew_UnknownPeople_Rejected(t *testing.T) {
	f := newFixture(t)
	slots := []academy.WeeklySlot{{Day: time.Monday, Time: mustTime(t, "10:00")}}

	_, err := f.packages.CreateOrRenew(context.Background(), academy.CreateOrRenewInput{
		StudentID: "s-nobody", TeacherID: "t-anna",
		LessonsPurchased: 4, DurationMinutes: 60, StartDate: monday, Slots: slots,
	})
	assert.ErrorIs(t, err, academy.ErrNotFound)

	_, err = f.packages.CreateOrRenew(context.Background(), academy.CreateOrRenewInput{
		StudentID: "s-boris", TeacherID: "t-nobody",
		LessonsPurchased: 4, DurationMinutes: 60, StartDate: monday, Slots: slots,
	})
	assert.ErrorIs(t, err, academy.ErrNotFound)
}

func TestCreateOrRenew_NegativeAmount_Rejected(t *testing.T) {
	f := newFixture(t)

	_, err := f.packages.CreateOrRenew(context.Background(), academy.CreateOrRenewInput{
		StudentID: "s-boris", TeacherID: "t-anna",
		AmountPaid:       decimal.NewFromInt(-1),
		LessonsPurchased: 4, DurationMinutes: 60, StartDate: monday,
		Slots: []academy.WeeklySlot{{Day: time.Monday, Time: mustTime(t, "10:00")}},
	})
	assert.ErrorIs(t, err, academy.ErrValidation)
}

// =============================================================================
// DERIVED COMPLETION TESTS
// =============================================================================

func TestPackage_CompletesWhenNothingLiveRemains(t *testing.T) {
	// GIVEN: An active package
	// WHEN: Every instance reaches a terminal status
	// THEN: The package derives to completed without an explicit close

	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	for i, li := range result.Instances {
		status := academy.LessonCompleted
		if i == len(result.Instances)-1 {
			status = academy.LessonCancelled
		}
		_, _, err := f.lessons.Mark(ctx, li.ID, status, "")
		require.NoError(t, err)
	}

	pkg, err := f.store.GetPackage(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, academy.PackageCompleted, pkg.Status)
}

func TestPackage_AdHocLessonReopensIt(t *testing.T) {
	// GIVEN: A completed package and one free credit (from the cancel)
	// WHEN: An ad-hoc lesson is added to it
	// THEN: The package derives back to active

	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	for i, li := range result.Instances {
		status := academy.LessonCompleted
		if i == 0 {
			status = academy.LessonCancelled
		}
		_, _, err := f.lessons.Mark(ctx, li.ID, status, "")
		require.NoError(t, err)
	}

	_, err := f.lessons.Create(ctx, academy.CreateLessonInput{
		PackageID: result.Package.ID,
		Date:      academy.NewDate(2025, time.April, 10),
		Time:      mustTime(t, "10:00"),
	})
	require.NoError(t, err)

	pkg, err := f.store.GetPackage(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, academy.PackageActive, pkg.Status)
}

func TestPackage_ManualClose(t *testing.T) {
	f := newFixture(t)
	result := f.purchase(t)
	ctx := context.Background()

	pkg, err := f.packages.Close(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, academy.PackageCompleted, pkg.Status)

	// Closing again is a no-op
	pkg, err = f.packages.Close(ctx, result.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, academy.PackageCompleted, pkg.Status)

	_, err = f.packages.Close(ctx, "pkg-nobody")
	assert.ErrorIs(t, err, academy.ErrNotFound)
}

func TestRenewal_ClosesFinishedEarlierPackages(t *testing.T) {
	// GIVEN: A first package whose lessons are all consumed but whose
	//        status was never refreshed
	// WHEN: A renewal is recorded
	// THEN: The earlier package derives to completed in the same operation

	f := newFixture(t)
	first := f.purchase(t)
	ctx := context.Background()

	for _, li := range first.Instances {
		require.NoError(t, f.store.UpdateInstanceStatus(ctx, li.ID, academy.LessonScheduled, academy.LessonCompleted, nil))
	}

	_, err := f.packages.CreateOrRenew(ctx, academy.CreateOrRenewInput{
		StudentID:        "s-boris",
		TeacherID:        "t-anna",
		AmountPaid:       decimal.NewFromInt(240),
		LessonsPurchased: 4,
		DurationMinutes:  60,
		StartDate:        academy.NewDate(2025, time.April, 1),
	})
	require.NoError(t, err)

	pkg, err := f.store.GetPackage(ctx, first.Package.ID)
	require.NoError(t, err)
	assert.Equal(t, academy.PackageCompleted, pkg.Status)
}
