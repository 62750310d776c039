package academy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/warp/academy-engine/academy"
)

// =============================================================================
// STATUS DERIVATION TESTS
// =============================================================================

func TestDeriveStatus_DefaultThresholds(t *testing.T) {
	th := academy.DefaultThresholds()

	assert.Equal(t, academy.StudentActive, academy.DeriveStatus(10, th))
	assert.Equal(t, academy.StudentActive, academy.DeriveStatus(3, th))
	assert.Equal(t, academy.StudentGrace, academy.DeriveStatus(2, th))
	assert.Equal(t, academy.StudentGrace, academy.DeriveStatus(1, th))
	assert.Equal(t, academy.StudentBlocked, academy.DeriveStatus(0, th))
	assert.Equal(t, academy.StudentBlocked, academy.DeriveStatus(-2, th))
}

func TestDeriveStatus_CustomThresholds(t *testing.T) {
	// A stricter academy: grace at 5, blocked already at 1
	th := academy.Thresholds{GraceMax: 5, BlockedMax: 1}

	assert.Equal(t, academy.StudentActive, academy.DeriveStatus(6, th))
	assert.Equal(t, academy.StudentGrace, academy.DeriveStatus(5, th))
	assert.Equal(t, academy.StudentGrace, academy.DeriveStatus(2, th))
	assert.Equal(t, academy.StudentBlocked, academy.DeriveStatus(1, th))
}

// =============================================================================
// SUMMARY TESTS
// =============================================================================

func TestSummarize_Conservation(t *testing.T) {
	// GIVEN: 8 purchased, 1 bonus adjustment, 3 completed, 1 absent, 2 live
	// THEN: Balance counts ownership, Available subtracts the live holds

	w := academy.Summarize(academy.WalletInputs{
		LessonsPurchased: 8,
		Adjustments:      1,
		Completed:        3,
		Absent:           1,
		Live:             2,
	}, academy.DefaultThresholds())

	assert.Equal(t, 5, w.Balance) // 8 + 1 - 3 - 1
	assert.Equal(t, 2, w.Reserved)
	assert.Equal(t, 3, w.Available)
	assert.Equal(t, academy.StudentActive, w.Status)

	// Conservation: available == purchased + adjustments - consumed - reserved
	assert.Equal(t, 8+1-3-1-2, w.Available)
}

func TestSummarize_FreshPurchaseFullyReserved(t *testing.T) {
	// A new 8-lesson package generates 8 holds: balance 8, available 0.
	w := academy.Summarize(academy.WalletInputs{
		LessonsPurchased: 8,
		Live:             8,
	}, academy.DefaultThresholds())

	assert.Equal(t, 8, w.Balance)
	assert.Equal(t, 0, w.Available)
	assert.Equal(t, academy.StudentActive, w.Status)
	assert.False(t, academy.CanSchedule(w), "no free credit to pin a new lesson to")
}

func TestSummarize_NegativeBalance(t *testing.T) {
	// Over-consumption (manual adjustments can push below zero) blocks.
	w := academy.Summarize(academy.WalletInputs{
		LessonsPurchased: 4,
		Adjustments:      -2,
		Completed:        4,
	}, academy.DefaultThresholds())

	assert.Equal(t, -2, w.Balance)
	assert.Equal(t, academy.StudentBlocked, w.Status)
}

// =============================================================================
// STATE MACHINE TESTS
// =============================================================================

func TestCanTransition(t *testing.T) {
	live := []academy.LessonStatus{academy.LessonScheduled, academy.LessonRescheduled}
	terminal := []academy.LessonStatus{academy.LessonCompleted, academy.LessonAbsent, academy.LessonCancelled}

	for _, from := range live {
		assert.True(t, academy.CanTransition(from, academy.LessonCompleted))
		assert.True(t, academy.CanTransition(from, academy.LessonAbsent))
		assert.True(t, academy.CanTransition(from, academy.LessonCancelled))
		assert.True(t, academy.CanTransition(from, academy.LessonRescheduled))
	}

	for _, from := range terminal {
		for _, to := range []academy.LessonStatus{
			academy.LessonScheduled, academy.LessonCompleted, academy.LessonAbsent,
			academy.LessonCancelled, academy.LessonRescheduled,
		} {
			if from == to {
				assert.True(t, academy.CanTransition(from, to), "same-status is an idempotent no-op")
				continue
			}
			assert.False(t, academy.CanTransition(from, to), "%s -> %s must be rejected", from, to)
		}
	}

	// Nothing goes back to scheduled
	assert.False(t, academy.CanTransition(academy.LessonRescheduled, academy.LessonScheduled))
}

// =============================================================================
// EFFECT TESTS
// =============================================================================

func TestTransitionEffect(t *testing.T) {
	tests := []struct {
		name     string
		from, to academy.LessonStatus
		bonus    bool
		want     academy.Effect
	}{
		{"complete consumes the hold", academy.LessonScheduled, academy.LessonCompleted, false, academy.Effect{Balance: -1, Reserved: -1}},
		{"absence consumes like completion", academy.LessonScheduled, academy.LessonAbsent, false, academy.Effect{Balance: -1, Reserved: -1}},
		{"cancel releases the hold", academy.LessonScheduled, academy.LessonCancelled, false, academy.Effect{Reserved: -1}},
		{"reschedule is a pure data edit", academy.LessonScheduled, academy.LessonRescheduled, false, academy.Effect{}},
		{"complete from rescheduled", academy.LessonRescheduled, academy.LessonCompleted, false, academy.Effect{Balance: -1, Reserved: -1}},
		{"idempotent re-mark", academy.LessonCompleted, academy.LessonCompleted, false, academy.Effect{}},
		{"bonus lessons never touch the wallet", academy.LessonScheduled, academy.LessonCompleted, true, academy.Effect{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, academy.TransitionEffect(tt.from, tt.to, tt.bonus))
		})
	}
}

func TestCreationAndDeletionEffects(t *testing.T) {
	assert.Equal(t, academy.Effect{Reserved: 1}, academy.CreationEffect(false))
	assert.Equal(t, academy.Effect{}, academy.CreationEffect(true))

	assert.Equal(t, academy.Effect{Reserved: -1}, academy.DeletionEffect(academy.LessonScheduled, false))
	assert.Equal(t, academy.Effect{Reserved: -1}, academy.DeletionEffect(academy.LessonRescheduled, false))
	assert.Equal(t, academy.Effect{}, academy.DeletionEffect(academy.LessonScheduled, true))
	assert.Equal(t, academy.Effect{}, academy.DeletionEffect(academy.LessonCompleted, false))
}

func TestApply_ExactlyOneDebitPerLifecycle(t *testing.T) {
	// GIVEN: One purchased credit put on hold at generation
	// WHEN: The lesson is rescheduled twice and then completed
	// THEN: The wallet lost exactly one credit over the whole lifecycle

	th := academy.DefaultThresholds()
	w := academy.Summarize(academy.WalletInputs{LessonsPurchased: 5, Live: 1}, th)
	assert.Equal(t, 4, w.Available)

	w = w.Apply(academy.TransitionEffect(academy.LessonScheduled, academy.LessonRescheduled, false), th)
	w = w.Apply(academy.TransitionEffect(academy.LessonRescheduled, academy.LessonRescheduled, false), th)
	assert.Equal(t, 5, w.Balance)
	assert.Equal(t, 4, w.Available)

	w = w.Apply(academy.TransitionEffect(academy.LessonRescheduled, academy.LessonCompleted, false), th)
	assert.Equal(t, 4, w.Balance)
	assert.Equal(t, 0, w.Reserved)
	assert.Equal(t, 4, w.Available)
}

func TestCanSchedule(t *testing.T) {
	th := academy.DefaultThresholds()

	ok := academy.Summarize(academy.WalletInputs{LessonsPurchased: 5, Live: 1}, th)
	assert.True(t, academy.CanSchedule(ok))

	exhausted := academy.Summarize(academy.WalletInputs{LessonsPurchased: 5, Live: 5}, th)
	assert.False(t, academy.CanSchedule(exhausted))

	// With a raised blocked boundary a student can hold credit yet be blocked.
	strict := academy.Thresholds{GraceMax: 5, BlockedMax: 2}
	blocked := academy.Summarize(academy.WalletInputs{LessonsPurchased: 2}, strict)
	assert.Equal(t, academy.StudentBlocked, blocked.Status)
	assert.Equal(t, 2, blocked.Available)
	assert.False(t, academy.CanSchedule(blocked), "blocked students cannot take new lessons even with credit")
}
