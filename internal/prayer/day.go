package prayer

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

type DayState string

const (
	DayUninitialized DayState = "uninitialized"
	DayGenerated     DayState = "generated"
)

// Day is one calendar day of the prayer log. Entries exist only once the
// day has been generated from computed windows.
type Day struct {
	ID              uuid.UUID `json:"id" db:"id"`
	Date            time.Time `json:"date" db:"day_date"`
	StreakProtected bool      `json:"streak_protected" db:"streak_protected"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`

	state   DayState
	entries []*Entry
}

func NewDay(date time.Time) *Day {
	return &Day{
		ID:        uuid.New(),
		Date:      date,
		CreatedAt: time.Now(),
		state:     DayUninitialized,
	}
}

// RestoreDay rebuilds a day loaded from storage. A day with no entries is
// uninitialized.
func RestoreDay(id uuid.UUID, date time.Time, streakProtected bool, createdAt time.Time, entries []*Entry) *Day {
	d := &Day{
		ID:              id,
		Date:            date,
		StreakProtected: streakProtected,
		CreatedAt:       createdAt,
		state:           DayUninitialized,
	}
	if len(entries) > 0 {
		d.state = DayGenerated
		d.entries = sortEntries(entries)
	}
	return d
}

func (d *Day) State() DayState {
	return d.state
}

// Entries returns the generated entries in daily order. ok is false while
// the day is uninitialized.
func (d *Day) Entries() (entries []*Entry, ok bool) {
	if d.state != DayGenerated {
		return nil, false
	}
	return d.entries, true
}

// Generate creates one pending entry per window. It runs once per day.
func (d *Day) Generate(windows []Window) error {
	if d.state == DayGenerated {
		return ErrDayAlreadyGenerated
	}
	if len(windows) != len(Kinds) {
		return fmt.Errorf("expected %d windows, got %d: %w", len(Kinds), len(windows), ErrCalculationUnavailable)
	}

	entries := make([]*Entry, 0, len(windows))
	for _, w := range windows {
		entries = append(entries, NewEntry(w))
	}
	d.entries = sortEntries(entries)
	d.state = DayGenerated
	return nil
}

// UpdateWindows moves each entry to its recomputed window. Statuses are
// left untouched.
func (d *Day) UpdateWindows(windows []Window) error {
	if d.state != DayGenerated {
		return ErrDayNotGenerated
	}
	for _, w := range windows {
		entry, err := d.Entry(w.Kind)
		if err != nil {
			return err
		}
		entry.WindowStart = w.Start
		entry.WindowEnd = w.End
		entry.ScheduledDate = w.ScheduledTime
	}
	return nil
}

func (d *Day) Entry(kind Kind) (*Entry, error) {
	if d.state != DayGenerated {
		return nil, ErrDayNotGenerated
	}
	for _, e := range d.entries {
		if e.Kind == kind {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

func (d *Day) IsPerfect() bool {
	done := 0
	for _, e := range d.entries {
		if e.Status == StatusDone {
			done++
		}
	}
	return done == len(Kinds)
}

func (d *Day) CompletedCount() int {
	count := 0
	for _, e := range d.entries {
		if e.Status.Completed() {
			count++
		}
	}
	return count
}

// IsStreakSafe reports whether every prayer of the day was performed,
// on time or as qada.
func (d *Day) IsStreakSafe() bool {
	if len(d.entries) != len(Kinds) {
		return false
	}
	for _, e := range d.entries {
		if !e.Status.Completed() {
			return false
		}
	}
	return true
}

func (d *Day) HasPending() bool {
	for _, e := range d.entries {
		if e.Status == StatusPending {
			return true
		}
	}
	return false
}

// FinalizeElapsed persists missed status on pending entries whose window
// has closed and returns how many changed.
func (d *Day) FinalizeElapsed(now time.Time) int {
	changed := 0
	for _, e := range d.entries {
		if e.Status == StatusPending && e.Elapsed(now) {
			e.Status = StatusMissed
			changed++
		}
	}
	return changed
}

func sortEntries(entries []*Entry) []*Entry {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Kind.Index() < entries[j].Kind.Index()
	})
	return entries
}
