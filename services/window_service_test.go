package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salahStreakAPI/internal/astro"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/utils"
)

func TestComputeWindows_BoundsFollowPrayerTimes(t *testing.T) {
	windows, err := NewWindowService(fixedCalculator{}).ComputeWindows(dateOf(15), prayer.Coordinates{}, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)
	require.NoError(t, err)
	require.Len(t, windows, 5)

	assert.Equal(t, prayer.Fajr, windows[0].Kind)
	assert.Equal(t, at(15, 5, 0), windows[0].Start)
	assert.Equal(t, at(15, 6, 30), windows[0].End)
	assert.Equal(t, at(15, 15, 30), windows[1].End)
	assert.Equal(t, at(15, 19, 30), windows[3].End)

	// Isha runs to the next day's Fajr.
	assert.Equal(t, prayer.Isha, windows[4].Kind)
	assert.Equal(t, at(16, 5, 0), windows[4].End)

	for _, w := range windows {
		assert.True(t, w.Start.Before(w.End), w.Kind)
		assert.Equal(t, w.Start, w.ScheduledTime)
	}
}

func TestComputeWindows_IshaFallsBackWhenNextDayUnavailable(t *testing.T) {
	calc := fixedCalculator{failOn: map[string]bool{"2026-10-16": true}}

	windows, err := NewWindowService(calc).ComputeWindows(dateOf(15), prayer.Coordinates{}, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)
	require.NoError(t, err)

	assert.Equal(t, at(15, 19, 30).Add(IshaFallback), windows[4].End)
}

func TestComputeWindows_UnavailableDay(t *testing.T) {
	calc := fixedCalculator{failOn: map[string]bool{"2026-10-15": true}}

	windows, err := NewWindowService(calc).ComputeWindows(dateOf(15), prayer.Coordinates{}, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)

	assert.ErrorIs(t, err, prayer.ErrCalculationUnavailable)
	assert.Empty(t, windows)
}

type scrambledCalculator struct{ fixedCalculator }

func (c scrambledCalculator) Compute(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, asrFactor int) (astro.Times, error) {
	times, _ := c.fixedCalculator.Compute(date, coords, method, asrFactor)
	times.Asr, times.Dhuhr = times.Dhuhr, times.Asr
	return times, nil
}

func TestComputeWindows_RejectsNonIncreasingTimes(t *testing.T) {
	_, err := NewWindowService(scrambledCalculator{}).ComputeWindows(dateOf(15), prayer.Coordinates{}, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)

	assert.ErrorIs(t, err, prayer.ErrCalculationUnavailable)
}

func TestComputeWindows_SolarOrderingAndMadhab(t *testing.T) {
	ast := time.FixedZone("AST", 3*3600)
	mecca := prayer.Coordinates{Latitude: 21.4225, Longitude: 39.8262}
	svc := NewWindowService(astro.NewSolarCalculator())

	for _, d := range []int{1, 15, 31} {
		date := time.Date(2026, time.March, d, 0, 0, 0, 0, ast)

		shafi, err := svc.ComputeWindows(date, mecca, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)
		require.NoError(t, err)
		hanafi, err := svc.ComputeWindows(date, mecca, prayer.MethodMuslimWorldLeague, prayer.MadhabHanafi)
		require.NoError(t, err)

		for i := 1; i < len(shafi); i++ {
			assert.True(t, shafi[i-1].Start.Before(shafi[i].Start), "%s before %s on %s", shafi[i-1].Kind, shafi[i].Kind, utils.DateString(date))
		}
		assert.False(t, hanafi[2].Start.Before(shafi[2].Start), "hanafi asr starts before shafi asr")
		assert.True(t, shafi[4].End.After(shafi[4].Start))
	}
}
