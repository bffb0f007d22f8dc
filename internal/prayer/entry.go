package prayer

import (
	"time"

	"github.com/google/uuid"
)

type Entry struct {
	ID            uuid.UUID   `json:"id" db:"id"`
	Kind          Kind        `json:"prayer" db:"kind"`
	ScheduledDate time.Time   `json:"scheduled_date" db:"scheduled_at"`
	WindowStart   time.Time   `json:"window_start" db:"window_start"`
	WindowEnd     time.Time   `json:"window_end" db:"window_end"`
	PerformedAt   *time.Time  `json:"performed_at,omitempty" db:"performed_at"`
	Status        Status      `json:"status" db:"status"`
	Source        EntrySource `json:"source" db:"source"`
}

func NewEntry(w Window) *Entry {
	return &Entry{
		ID:            uuid.New(),
		Kind:          w.Kind,
		ScheduledDate: w.ScheduledTime,
		WindowStart:   w.Start,
		WindowEnd:     w.End,
		Status:        StatusPending,
		Source:        SourceApp,
	}
}

func (e *Entry) Window() Window {
	return Window{
		Kind:          e.Kind,
		Start:         e.WindowStart,
		End:           e.WindowEnd,
		ScheduledTime: e.ScheduledDate,
	}
}

// Elapsed reports whether now is past the end of the entry's window.
func (e *Entry) Elapsed(now time.Time) bool {
	return now.After(e.WindowEnd)
}
