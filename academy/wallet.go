/*
wallet.go - The lesson wallet: balance math and status transitions

PURPOSE:
  Pure functions translating lesson lifecycle events into wallet figures
  and the student's access tier. No I/O. This is the single place that
  knows how a lesson affects the wallet; callers must never recompute
  these rules inline.

THE TWO FIGURES:
  Balance   = purchased + adjustments - completed - absent
              (credits the student still owns)
  Available = Balance - live holds
              (credits not yet pinned to a scheduled lesson)

  A credit is debited exactly once per instance, at generation time, as a
  soft hold. Completing or marking absent converts the hold into a real
  consumption (Balance drops, Available is unchanged - the hold was
  already counted). Cancelling or deleting a scheduled lesson releases
  the hold. Rescheduling is a pure data edit with no wallet effect.
  Bonus lessons never touch either figure.

  This keeps both spec statements true at once: the purchased credit
  enters the wallet immediately on package creation, and
  Available == purchased - consumed - still-reserved at all times.

STATUS DERIVATION:
  Active if Balance > GraceMax, Grace if BlockedMax < Balance <= GraceMax,
  Blocked otherwise. Thresholds are configuration, not hard-coded fact.

SEE ALSO:
  - lessons.go: applies these rules inside store transactions
  - lifecycle.go: takes the initial holds at generation time
*/
package academy

// =============================================================================
// THRESHOLDS - Access-control tiers are configuration
// =============================================================================

// Thresholds configure the Grace/Blocked boundaries.
// Blocked when Balance <= BlockedMax, Grace when Balance <= GraceMax.
type Thresholds struct {
	GraceMax   int
	BlockedMax int
}

func DefaultThresholds() Thresholds {
	return Thresholds{GraceMax: 2, BlockedMax: 0}
}

// DeriveStatus classifies a balance into an access tier.
// Status is always derived from balance, never set independently.
func DeriveStatus(balance int, t Thresholds) StudentStatus {
	switch {
	case balance <= t.BlockedMax:
		return StudentBlocked
	case balance <= t.GraceMax:
		return StudentGrace
	default:
		return StudentActive
	}
}

// =============================================================================
// WALLET SUMMARY - Derived, never stored
// =============================================================================

// WalletInputs are the raw counts a wallet is computed from. Bonus
// instances must already be excluded from every count.
type WalletInputs struct {
	LessonsPurchased int // across all packages, ever
	Adjustments      int // net of manual corrections
	Completed        int
	Absent           int
	Live             int // scheduled + rescheduled (credits on hold)
}

// WalletSummary is the student's wallet at a point in time.
type WalletSummary struct {
	Balance   int
	Reserved  int
	Available int
	Status    StudentStatus
}

// Summarize computes the wallet from raw counts.
// Invariant: Available == purchased + adjustments - consumed - reserved.
func Summarize(in WalletInputs, t Thresholds) WalletSummary {
	balance := in.LessonsPurchased + in.Adjustments - in.Completed - in.Absent
	summary := WalletSummary{
		Balance:   balance,
		Reserved:  in.Live,
		Available: balance - in.Live,
	}
	summary.Status = DeriveStatus(summary.Balance, t)
	return summary
}

// Apply returns the summary after a wallet effect, re-deriving status.
func (w WalletSummary) Apply(e Effect, t Thresholds) WalletSummary {
	next := WalletSummary{
		Balance:  w.Balance + e.Balance,
		Reserved: w.Reserved + e.Reserved,
	}
	next.Available = next.Balance - next.Reserved
	next.Status = DeriveStatus(next.Balance, t)
	return next
}

// =============================================================================
// STATE MACHINE - Permitted lesson status transitions
// =============================================================================

// scheduled and rescheduled may move to any of the four targets;
// completed, absent and cancelled are terminal.
var permitted = map[LessonStatus]map[LessonStatus]bool{
	LessonScheduled: {
		LessonCompleted:   true,
		LessonAbsent:      true,
		LessonCancelled:   true,
		LessonRescheduled: true,
	},
	LessonRescheduled: {
		LessonCompleted:   true,
		LessonAbsent:      true,
		LessonCancelled:   true,
		LessonRescheduled: true,
	},
}

// CanTransition reports whether from -> to is a permitted edge.
// A same-status transition is always permitted as an idempotent no-op.
func CanTransition(from, to LessonStatus) bool {
	if from == to {
		return true
	}
	return permitted[from][to]
}

// =============================================================================
// TRANSITION EFFECTS - Exactly one wallet-affecting event per instance
// =============================================================================

// Effect is the wallet delta of a lesson lifecycle event.
// Reserved tracks live holds; Available moves by Balance - Reserved.
type Effect struct {
	Balance  int
	Reserved int
}

func (e Effect) IsZero() bool { return e.Balance == 0 && e.Reserved == 0 }

// CreationEffect is the wallet effect of inserting a new scheduled lesson:
// one credit goes on hold. Bonus lessons are free.
func CreationEffect(bonus bool) Effect {
	if bonus {
		return Effect{}
	}
	return Effect{Reserved: +1}
}

// DeletionEffect is the wallet effect of removing a lesson. Only live
// lessons may be deleted; removal releases the reserved credit.
func DeletionEffect(status LessonStatus, bonus bool) Effect {
	if bonus || !status.Live() {
		return Effect{}
	}
	return Effect{Reserved: -1}
}

// TransitionEffect is the wallet effect of a status transition.
// The transition must already be permitted (see CanTransition).
//
//	live -> completed/absent: hold becomes consumption (Balance -1, hold -1)
//	live -> cancelled:        hold released (Available +1)
//	live -> rescheduled:      pure data edit, no effect
//	same -> same:             idempotent, no effect
func TransitionEffect(from, to LessonStatus, bonus bool) Effect {
	if bonus || from == to {
		return Effect{}
	}
	if !from.Live() {
		return Effect{}
	}
	switch to {
	case LessonCompleted, LessonAbsent:
		return Effect{Balance: -1, Reserved: -1}
	case LessonCancelled:
		return Effect{Reserved: -1}
	default: // rescheduled
		return Effect{}
	}
}

// CanSchedule reports whether a new non-bonus lesson may be created for a
// wallet. Consuming an already-held credit is always allowed; the gate
// only guards NEW holds: blocked students and exhausted wallets cannot
// take on more scheduled lessons.
func CanSchedule(w WalletSummary) bool {
	return w.Status != StudentBlocked && w.Available >= 1
}
