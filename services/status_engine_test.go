package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

func pendingEntry(start, end time.Time) *prayer.Entry {
	return prayer.NewEntry(prayer.Window{Kind: prayer.Dhuhr, Start: start, End: end, ScheduledTime: start})
}

func TestDeriveState_Boundaries(t *testing.T) {
	start := at(15, 12, 0)
	end := at(15, 15, 0)
	e := pendingEntry(start, end)

	tests := []struct {
		name string
		now  time.Time
		want prayer.DisplayState
	}{
		{"before start", start.Add(-time.Second), prayer.StateFuture},
		{"at start", start, prayer.StateActive},
		{"exactly ten minutes left", end.Add(-WarningThreshold), prayer.StateActive},
		{"just under ten minutes left", end.Add(-WarningThreshold + time.Second), prayer.StateWarning},
		{"at end", end, prayer.StateWarning},
		{"after end", end.Add(time.Second), prayer.StateMissed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveState(e, tt.now))
		})
	}
}

func TestDeriveState_PersistedStatusWins(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	inWindow := at(15, 13, 0)

	e.Status = prayer.StatusDone
	assert.Equal(t, prayer.StateDone, DeriveState(e, inWindow))

	e.Status = prayer.StatusQada
	assert.Equal(t, prayer.StateQada, DeriveState(e, inWindow))

	e.Status = prayer.StatusMissed
	assert.Equal(t, prayer.StateMissed, DeriveState(e, inWindow))
}

func TestDeriveState_DoesNotPersistMissed(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))

	assert.Equal(t, prayer.StateMissed, DeriveState(e, at(15, 16, 0)))
	assert.Equal(t, prayer.StatusPending, e.Status)
}

func TestApplyMarkDone_RejectedForFuture(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	st := stats.New()

	err := ApplyMarkDone(e, st, at(15, 11, 0), prayer.SourceApp)

	assert.ErrorIs(t, err, prayer.ErrInvalidTransition)
	assert.Equal(t, prayer.StatusPending, e.Status)
	assert.Nil(t, e.PerformedAt)
	assert.Zero(t, st.TotalPrayers)
}

func TestApplyMarkDone_FromActiveAndWarning(t *testing.T) {
	for _, now := range []time.Time{at(15, 13, 0), at(15, 14, 55)} {
		e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
		st := stats.New()

		require.NoError(t, ApplyMarkDone(e, st, now, prayer.SourceNotification))

		assert.Equal(t, prayer.StatusDone, e.Status)
		assert.Equal(t, prayer.SourceNotification, e.Source)
		require.NotNil(t, e.PerformedAt)
		assert.True(t, e.PerformedAt.Equal(now))
		assert.Equal(t, 1, st.TotalPrayers)
	}
}

func TestApplyMarkDone_RejectedAfterWindow(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))

	err := ApplyMarkDone(e, stats.New(), at(15, 16, 0), prayer.SourceApp)
	assert.ErrorIs(t, err, prayer.ErrInvalidTransition)
}

func TestApplyMarkQada_OnlyWhenMissed(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	st := stats.New()

	assert.ErrorIs(t, ApplyMarkQada(e, st, at(15, 13, 0), prayer.SourceApp), prayer.ErrInvalidTransition)

	require.NoError(t, ApplyMarkQada(e, st, at(15, 16, 0), prayer.SourceApp))
	assert.Equal(t, prayer.StatusQada, e.Status)
	assert.Equal(t, 1, st.TotalPrayers)

	// A finalized missed entry qualifies as well.
	finalized := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	finalized.Status = prayer.StatusMissed
	require.NoError(t, ApplyMarkQada(finalized, st, at(15, 16, 0), prayer.SourceApp))
}

func TestApplyUndoDone_ReturnsToPending(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	st := stats.New()
	require.NoError(t, ApplyMarkDone(e, st, at(15, 13, 0), prayer.SourceApp))

	require.NoError(t, ApplyUndoDone(e, st))

	assert.Equal(t, prayer.StatusPending, e.Status)
	assert.Nil(t, e.PerformedAt)
	assert.Zero(t, st.TotalPrayers)
	assert.ErrorIs(t, ApplyUndoDone(e, st), prayer.ErrInvalidTransition)
}

func TestApplyUndoQada_LandsOnMissed(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	st := stats.New()
	require.NoError(t, ApplyMarkQada(e, st, at(15, 16, 0), prayer.SourceApp))

	require.NoError(t, ApplyUndoQada(e, st))

	assert.Equal(t, prayer.StatusMissed, e.Status)
	assert.Nil(t, e.PerformedAt)
	assert.Zero(t, st.TotalPrayers)
}

func TestDecrementTotal_FloorsAtZero(t *testing.T) {
	e := pendingEntry(at(15, 12, 0), at(15, 15, 0))
	e.Status = prayer.StatusDone
	st := stats.New()

	require.NoError(t, ApplyUndoDone(e, st))
	assert.Zero(t, st.TotalPrayers)
}
