package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

// dayWith builds a generated day whose entries carry the given statuses in
// daily order.
func dayWith(t *testing.T, statuses ...prayer.Status) *prayer.Day {
	t.Helper()
	day := prayer.NewDay(dateOf(14))
	require.NoError(t, day.Generate(fixedWindows(14)))

	entries, _ := day.Entries()
	for i, s := range statuses {
		entries[i].Status = s
	}
	return day
}

func perfectDay(t *testing.T) *prayer.Day {
	return dayWith(t, prayer.StatusDone, prayer.StatusDone, prayer.StatusDone, prayer.StatusDone, prayer.StatusDone)
}

func TestProcessDayEnd_SeventhPerfectDayGrantsFreeze(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 6
	st.BestStreak = 6

	outcome, err := ProcessDayEnd(perfectDay(t), st)
	require.NoError(t, err)

	assert.Equal(t, OutcomePerfect, outcome)
	assert.Equal(t, 7, st.CurrentStreak)
	assert.Equal(t, 7, st.BestStreak)
	assert.Equal(t, 1, st.FreezesAvailable)
}

func TestProcessDayEnd_PerfectDayKeepsHigherBest(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 2
	st.BestStreak = 10

	_, err := ProcessDayEnd(perfectDay(t), st)
	require.NoError(t, err)

	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 10, st.BestStreak)
	assert.Zero(t, st.FreezesAvailable)
}

func TestProcessDayEnd_QadaDayIsProtected(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 4
	st.BestStreak = 4
	day := dayWith(t, prayer.StatusDone, prayer.StatusQada, prayer.StatusDone, prayer.StatusDone, prayer.StatusDone)

	outcome, err := ProcessDayEnd(day, st)
	require.NoError(t, err)

	assert.Equal(t, OutcomeProtected, outcome)
	assert.True(t, day.StreakProtected)
	assert.Equal(t, 4, st.CurrentStreak)
	assert.Zero(t, st.FreezesAvailable)
}

func TestProcessDayEnd_MissedDayConsumesFreeze(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 9
	st.BestStreak = 9
	st.FreezesAvailable = 1
	day := dayWith(t, prayer.StatusDone, prayer.StatusMissed, prayer.StatusDone, prayer.StatusDone, prayer.StatusDone)

	outcome, err := ProcessDayEnd(day, st)
	require.NoError(t, err)

	assert.Equal(t, OutcomeFreezeUsed, outcome)
	assert.True(t, day.StreakProtected)
	assert.Equal(t, 9, st.CurrentStreak)
	assert.Zero(t, st.FreezesAvailable)
}

func TestProcessDayEnd_MissedDayWithoutFreezeResets(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 9
	st.BestStreak = 12
	day := dayWith(t, prayer.StatusMissed, prayer.StatusMissed, prayer.StatusMissed, prayer.StatusMissed, prayer.StatusMissed)

	outcome, err := ProcessDayEnd(day, st)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReset, outcome)
	assert.False(t, day.StreakProtected)
	assert.Zero(t, st.CurrentStreak)
	assert.Equal(t, 12, st.BestStreak)
}

func TestProcessDayEnd_UninitializedDayCountsAsMissed(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 3
	st.BestStreak = 3

	outcome, err := ProcessDayEnd(prayer.NewDay(dateOf(14)), st)
	require.NoError(t, err)

	assert.Equal(t, OutcomeReset, outcome)
	assert.Zero(t, st.CurrentStreak)
}

func TestProcessDayEnd_RejectsPendingEntries(t *testing.T) {
	st := stats.New()
	st.CurrentStreak = 3
	day := dayWith(t, prayer.StatusDone, prayer.StatusDone)

	_, err := ProcessDayEnd(day, st)

	assert.ErrorIs(t, err, prayer.ErrDayNotFinalized)
	assert.Equal(t, 3, st.CurrentStreak)
}
