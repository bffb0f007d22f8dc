package services

import (
	"salahStreakAPI/internal/achievement"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

type badgeRule struct {
	id   achievement.BadgeID
	test func(st *stats.Stats, day *prayer.Day) bool
}

var badgeRules = []badgeRule{
	{achievement.FirstPrayer, func(st *stats.Stats, _ *prayer.Day) bool { return st.TotalPrayers >= 1 }},
	{achievement.PerfectDay, func(_ *stats.Stats, day *prayer.Day) bool { return day != nil && day.IsPerfect() }},
	{achievement.WeekWarrior, func(st *stats.Stats, _ *prayer.Day) bool { return st.CurrentStreak >= 7 }},
	{achievement.MonthMaster, func(st *stats.Stats, _ *prayer.Day) bool { return st.CurrentStreak >= 30 }},
	// Needs a per-fajr on-time counter that is not tracked yet.
	{achievement.EarlyBird, func(*stats.Stats, *prayer.Day) bool { return false }},
	{achievement.Consistent, func(st *stats.Stats, _ *prayer.Day) bool { return st.TotalPrayers >= 50 }},
}

// CheckAndAward unlocks every badge whose rule now holds and returns the
// new ones. Badges already owned are skipped.
func CheckAndAward(st *stats.Stats, day *prayer.Day) []achievement.Badge {
	var awarded []achievement.Badge
	for _, rule := range badgeRules {
		if st.HasBadge(string(rule.id)) || !rule.test(st, day) {
			continue
		}
		st.BadgesUnlocked = append(st.BadgesUnlocked, string(rule.id))
		if badge, ok := achievement.Lookup(rule.id); ok {
			awarded = append(awarded, badge)
		}
	}
	return awarded
}
