package services

import (
	"context"
	"time"

	"salahStreakAPI/internal/achievement"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
	"salahStreakAPI/internal/store"
	"salahStreakAPI/utils"
)

const weeklyGridDays = 7

// StatsService answers read-only questions about the prayer history.
type StatsService struct {
	repo store.Repository
	loc  *time.Location
}

func NewStatsService(repo store.Repository, loc *time.Location) *StatsService {
	if loc == nil {
		loc = time.UTC
	}
	return &StatsService{repo: repo, loc: loc}
}

func (s *StatsService) Summary(ctx context.Context) (*stats.Summary, error) {
	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	return &stats.Summary{
		CurrentStreak:    st.CurrentStreak,
		BestStreak:       st.BestStreak,
		TotalPrayers:     st.TotalPrayers,
		FreezesAvailable: st.FreezesAvailable,
		BadgesUnlocked:   len(st.BadgesUnlocked),
	}, nil
}

// WeeklyGrid returns the last seven days, oldest first, with one cell per
// prayer.
func (s *StatsService) WeeklyGrid(ctx context.Context, now time.Time) (*stats.WeeklyGrid, error) {
	today := utils.StartOfDay(now, s.loc)
	from := utils.AddDays(today, -(weeklyGridDays - 1))

	days, err := s.repo.ListDays(ctx, from, today)
	if err != nil {
		return nil, err
	}
	byDate := make(map[string]*prayer.Day, len(days))
	for _, d := range days {
		byDate[utils.DateString(d.Date)] = d
	}

	grid := &stats.WeeklyGrid{
		Prayers: make([]string, 0, len(prayer.Kinds)),
		Days:    make([]stats.WeeklyDay, 0, weeklyGridDays),
	}
	for _, k := range prayer.Kinds {
		grid.Prayers = append(grid.Prayers, string(k))
	}

	for offset := 0; offset < weeklyGridDays; offset++ {
		date := utils.AddDays(from, offset)
		key := utils.DateString(date)
		row := stats.WeeklyDay{
			Date:  key,
			Label: date.Format("Mon"),
			Cells: make([]stats.CellStatus, 0, len(prayer.Kinds)),
		}
		for _, k := range prayer.Kinds {
			row.Cells = append(row.Cells, cellFor(byDate[key], k))
		}
		grid.Days = append(grid.Days, row)
	}
	return grid, nil
}

func cellFor(day *prayer.Day, kind prayer.Kind) stats.CellStatus {
	if day == nil {
		return stats.CellNoData
	}
	entry, err := day.Entry(kind)
	if err != nil {
		return stats.CellNoData
	}
	switch entry.Status {
	case prayer.StatusDone:
		return stats.CellDone
	case prayer.StatusMissed:
		return stats.CellMissed
	case prayer.StatusQada:
		return stats.CellQada
	default:
		return stats.CellUpcoming
	}
}

// Breakdown counts completed prayers (done or qada) per kind across the
// whole history.
func (s *StatsService) Breakdown(ctx context.Context, now time.Time) ([]stats.PrayerBreakdown, error) {
	counts := make(map[prayer.Kind]int, len(prayer.Kinds))

	earliest, ok, err := s.repo.EarliestDay(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		days, err := s.repo.ListDays(ctx, earliest, utils.StartOfDay(now, s.loc))
		if err != nil {
			return nil, err
		}
		for _, d := range days {
			entries, _ := d.Entries()
			for _, e := range entries {
				if e.Status.Completed() {
					counts[e.Kind]++
				}
			}
		}
	}

	breakdown := make([]stats.PrayerBreakdown, 0, len(prayer.Kinds))
	for _, k := range prayer.Kinds {
		breakdown = append(breakdown, stats.PrayerBreakdown{Prayer: string(k), Count: counts[k]})
	}
	return breakdown, nil
}

// Badges lists the whole catalog with the owner's unlock flags.
func (s *StatsService) Badges(ctx context.Context) ([]achievement.BadgeWithStatus, error) {
	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	badges := make([]achievement.BadgeWithStatus, 0, len(achievement.Catalog))
	for _, b := range achievement.Catalog {
		badges = append(badges, achievement.BadgeWithStatus{Badge: b, Unlocked: st.HasBadge(string(b.ID))})
	}
	return badges, nil
}
