package services

import (
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

// FreezeInterval is the streak length that earns a freeze.
const FreezeInterval = 7

type DayOutcome string

const (
	OutcomePerfect    DayOutcome = "perfect"
	OutcomeProtected  DayOutcome = "protected"
	OutcomeFreezeUsed DayOutcome = "freeze_used"
	OutcomeReset      DayOutcome = "reset"
)

// ProcessDayEnd folds one finished day into the streak. The day must hold
// no pending entries; elapsed ones are finalized to missed beforehand.
func ProcessDayEnd(day *prayer.Day, st *stats.Stats) (DayOutcome, error) {
	if day.HasPending() {
		return "", prayer.ErrDayNotFinalized
	}

	switch {
	case day.IsPerfect():
		st.CurrentStreak++
		if st.CurrentStreak > st.BestStreak {
			st.BestStreak = st.CurrentStreak
		}
		if st.CurrentStreak%FreezeInterval == 0 {
			st.FreezesAvailable++
		}
		return OutcomePerfect, nil

	case day.IsStreakSafe():
		day.StreakProtected = true
		return OutcomeProtected, nil

	case st.FreezesAvailable > 0:
		st.FreezesAvailable--
		day.StreakProtected = true
		return OutcomeFreezeUsed, nil

	default:
		st.CurrentStreak = 0
		return OutcomeReset, nil
	}
}
