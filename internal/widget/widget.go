package widget

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the read-only view of today shared with out-of-process
// readers. Field names are part of the cross-process contract.
type Snapshot struct {
	Prayers       []Entry   `json:"prayers"`
	CurrentStreak int       `json:"currentStreak"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Entry struct {
	Prayer        string    `json:"prayer"`
	Status        string    `json:"status"`
	ScheduledTime time.Time `json:"scheduledTime"`
	WindowEnd     time.Time `json:"windowEnd"`
}

// CurrentPrayer returns the first pending prayer whose window is still open.
func (s Snapshot) CurrentPrayer(now time.Time) (Entry, bool) {
	for _, p := range s.Prayers {
		if p.Status == "pending" && now.Before(p.WindowEnd) {
			return p, true
		}
	}
	return Entry{}, false
}

// CompletedCount counts prayers done on time.
func (s Snapshot) CompletedCount() int {
	count := 0
	for _, p := range s.Prayers {
		if p.Status == "done" {
			count++
		}
	}
	return count
}

// Equal compares snapshots by instant, ignoring location and monotonic
// clock readings.
func (s Snapshot) Equal(o Snapshot) bool {
	if s.CurrentStreak != o.CurrentStreak || !s.UpdatedAt.Equal(o.UpdatedAt) || len(s.Prayers) != len(o.Prayers) {
		return false
	}
	for i := range s.Prayers {
		a, b := s.Prayers[i], o.Prayers[i]
		if a.Prayer != b.Prayer || a.Status != b.Status || !a.ScheduledTime.Equal(b.ScheduledTime) || !a.WindowEnd.Equal(b.WindowEnd) {
			return false
		}
	}
	return true
}

// SameContent is Equal without the UpdatedAt stamp.
func (s Snapshot) SameContent(o Snapshot) bool {
	o.UpdatedAt = s.UpdatedAt
	return s.Equal(o)
}

func Encode(s Snapshot) ([]byte, error) {
	if s.Prayers == nil {
		s.Prayers = []Entry{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to encode widget snapshot: %w", err)
	}
	return data, nil
}

func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return Snapshot{}, fmt.Errorf("failed to decode widget snapshot: %w", err)
	}
	return s, nil
}
