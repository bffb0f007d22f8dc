package stats

import (
	"slices"
	"time"
)

// Stats is the owner's cumulative record. LastClosedDate is the most recent
// day whose end has been processed.
type Stats struct {
	CurrentStreak    int        `json:"current_streak" db:"current_streak"`
	BestStreak       int        `json:"best_streak" db:"best_streak"`
	FreezesAvailable int        `json:"freezes_available" db:"freezes_available"`
	TotalPrayers     int        `json:"total_prayers" db:"total_prayers"`
	BadgesUnlocked   []string   `json:"badges_unlocked" db:"badges_unlocked"`
	LastClosedDate   *time.Time `json:"last_closed_date,omitempty" db:"last_closed_date"`
	UpdatedAt        time.Time  `json:"updated_at" db:"updated_at"`
}

func New() *Stats {
	return &Stats{BadgesUnlocked: []string{}}
}

func (s *Stats) HasBadge(id string) bool {
	return slices.Contains(s.BadgesUnlocked, id)
}

// Closed reports whether the day starting at date is at or before the
// closure watermark.
func (s *Stats) Closed(date time.Time) bool {
	return s.LastClosedDate != nil && !date.After(*s.LastClosedDate)
}

func (s *Stats) Clone() *Stats {
	c := *s
	c.BadgesUnlocked = slices.Clone(s.BadgesUnlocked)
	if s.LastClosedDate != nil {
		d := *s.LastClosedDate
		c.LastClosedDate = &d
	}
	return &c
}

type Summary struct {
	CurrentStreak    int `json:"current_streak"`
	BestStreak       int `json:"best_streak"`
	TotalPrayers     int `json:"total_prayers"`
	FreezesAvailable int `json:"freezes_available"`
	BadgesUnlocked   int `json:"badges_unlocked"`
}

type CellStatus string

const (
	CellNoData   CellStatus = "noData"
	CellUpcoming CellStatus = "upcoming"
	CellDone     CellStatus = "done"
	CellMissed   CellStatus = "missed"
	CellQada     CellStatus = "qada"
)

type WeeklyDay struct {
	Date  string       `json:"date"`
	Label string       `json:"label"`
	Cells []CellStatus `json:"cells"`
}

type WeeklyGrid struct {
	Prayers []string    `json:"prayers"`
	Days    []WeeklyDay `json:"days"`
}

type PrayerBreakdown struct {
	Prayer string `json:"prayer"`
	Count  int    `json:"count"`
}
