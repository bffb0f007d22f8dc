package services

import (
	"errors"
	"fmt"
	"time"

	"salahStreakAPI/internal/astro"
	"salahStreakAPI/internal/prayer"
)

// IshaFallback bounds the Isha window when the next day's Fajr cannot be
// computed.
const IshaFallback = 6 * time.Hour

type PrayerTimeCalculator interface {
	Compute(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, asrFactor int) (astro.Times, error)
}

type WindowService struct {
	calc PrayerTimeCalculator
}

func NewWindowService(calc PrayerTimeCalculator) *WindowService {
	return &WindowService{calc: calc}
}

// ComputeWindows returns the five windows of date in daily order. Isha ends
// at the next day's Fajr.
func (s *WindowService) ComputeWindows(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, madhab prayer.Madhab) ([]prayer.Window, error) {
	times, err := s.calc.Compute(date, coords, method, madhab.ShadowFactor())
	if err != nil {
		if errors.Is(err, prayer.ErrCalculationUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%v: %w", err, prayer.ErrCalculationUnavailable)
	}

	ishaEnd := times.Isha.Add(IshaFallback)
	next, err := s.calc.Compute(date.AddDate(0, 0, 1), coords, method, madhab.ShadowFactor())
	if err == nil && next.Fajr.After(times.Isha) {
		ishaEnd = next.Fajr
	}

	bounds := []struct {
		kind       prayer.Kind
		start, end time.Time
	}{
		{prayer.Fajr, times.Fajr, times.Sunrise},
		{prayer.Dhuhr, times.Dhuhr, times.Asr},
		{prayer.Asr, times.Asr, times.Maghrib},
		{prayer.Maghrib, times.Maghrib, times.Isha},
		{prayer.Isha, times.Isha, ishaEnd},
	}

	windows := make([]prayer.Window, 0, len(bounds))
	for i, b := range bounds {
		if !b.start.Before(b.end) {
			return nil, fmt.Errorf("%s window is empty: %w", b.kind, prayer.ErrCalculationUnavailable)
		}
		if i > 0 && b.start.Before(windows[i-1].Start) {
			return nil, fmt.Errorf("%s starts before %s: %w", b.kind, windows[i-1].Kind, prayer.ErrCalculationUnavailable)
		}
		windows = append(windows, prayer.Window{
			Kind:          b.kind,
			Start:         b.start,
			End:           b.end,
			ScheduledTime: b.start,
		})
	}
	return windows, nil
}
