package services

import (
	"time"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

// WarningThreshold is how close to the window end an open prayer turns
// into a warning.
const WarningThreshold = 10 * time.Minute

// DeriveState maps a persisted status and the clock to what the owner sees.
// It never mutates the entry.
func DeriveState(e *prayer.Entry, now time.Time) prayer.DisplayState {
	switch e.Status {
	case prayer.StatusDone:
		return prayer.StateDone
	case prayer.StatusQada:
		return prayer.StateQada
	case prayer.StatusMissed:
		return prayer.StateMissed
	}

	switch {
	case now.Before(e.WindowStart):
		return prayer.StateFuture
	case now.After(e.WindowEnd):
		return prayer.StateMissed
	case e.WindowEnd.Sub(now) < WarningThreshold:
		return prayer.StateWarning
	default:
		return prayer.StateActive
	}
}

// ApplyMarkDone records a prayer performed inside its window.
func ApplyMarkDone(e *prayer.Entry, st *stats.Stats, now time.Time, source prayer.EntrySource) error {
	state := DeriveState(e, now)
	if state != prayer.StateActive && state != prayer.StateWarning {
		return prayer.ErrInvalidTransition
	}
	at := now
	e.Status = prayer.StatusDone
	e.PerformedAt = &at
	e.Source = source
	st.TotalPrayers++
	return nil
}

// ApplyMarkQada records a missed prayer made up later.
func ApplyMarkQada(e *prayer.Entry, st *stats.Stats, now time.Time, source prayer.EntrySource) error {
	if DeriveState(e, now) != prayer.StateMissed {
		return prayer.ErrInvalidTransition
	}
	at := now
	e.Status = prayer.StatusQada
	e.PerformedAt = &at
	e.Source = source
	st.TotalPrayers++
	return nil
}

func ApplyUndoDone(e *prayer.Entry, st *stats.Stats) error {
	if e.Status != prayer.StatusDone {
		return prayer.ErrInvalidTransition
	}
	e.Status = prayer.StatusPending
	e.PerformedAt = nil
	decrementTotal(st)
	return nil
}

func ApplyUndoQada(e *prayer.Entry, st *stats.Stats) error {
	if e.Status != prayer.StatusQada {
		return prayer.ErrInvalidTransition
	}
	e.Status = prayer.StatusMissed
	e.PerformedAt = nil
	decrementTotal(st)
	return nil
}

func decrementTotal(st *stats.Stats) {
	if st.TotalPrayers > 0 {
		st.TotalPrayers--
	}
}
