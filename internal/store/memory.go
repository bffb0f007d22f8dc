package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
	"salahStreakAPI/utils"
)

// MemoryStore keeps everything in process. The service and handler tests
// run against it in place of PostgreSQL.
type MemoryStore struct {
	mu        sync.Mutex
	loc       *time.Location
	days      map[string]*prayer.Day
	stats     *stats.Stats
	settings  *prayer.Settings
	reminders map[string]*notification.Reminder
	tokens    map[string]notification.DeviceToken
}

var (
	_ Repository    = (*MemoryStore)(nil)
	_ ReminderQueue = (*MemoryStore)(nil)
)

func NewMemoryStore(loc *time.Location) *MemoryStore {
	return &MemoryStore{
		loc:       loc,
		days:      make(map[string]*prayer.Day),
		reminders: make(map[string]*notification.Reminder),
		tokens:    make(map[string]notification.DeviceToken),
	}
}

func (m *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (m *MemoryStore) FetchOrCreateDay(ctx context.Context, date time.Time) (*prayer.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := utils.DateString(date)
	day, ok := m.days[key]
	if !ok {
		day = prayer.NewDay(utils.StartOfDay(date, m.loc))
		m.days[key] = day
	}
	return copyDay(day), nil
}

func (m *MemoryStore) ListDays(ctx context.Context, from, to time.Time) ([]*prayer.Day, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fromKey, toKey := utils.DateString(from), utils.DateString(to)
	var days []*prayer.Day
	for key, day := range m.days {
		if key >= fromKey && key <= toKey {
			days = append(days, copyDay(day))
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (m *MemoryStore) EarliestDay(ctx context.Context) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var earliest *prayer.Day
	for _, day := range m.days {
		if earliest == nil || day.Date.Before(earliest.Date) {
			earliest = day
		}
	}
	if earliest == nil {
		return time.Time{}, false, nil
	}
	return earliest.Date, true, nil
}

func (m *MemoryStore) SaveDay(ctx context.Context, day *prayer.Day, st *stats.Stats) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.days[utils.DateString(day.Date)] = copyDay(day)
	if st != nil {
		saved := st.Clone()
		saved.UpdatedAt = time.Now()
		m.stats = saved
	}
	return nil
}

func (m *MemoryStore) FetchOrCreateStats(ctx context.Context) (*stats.Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stats == nil {
		m.stats = stats.New()
		m.stats.UpdatedAt = time.Now()
	}
	return m.stats.Clone(), nil
}

func (m *MemoryStore) FetchOrCreateSettings(ctx context.Context) (*prayer.Settings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.settings == nil {
		m.settings = prayer.DefaultSettings()
	}
	s := *m.settings
	return &s, nil
}

func (m *MemoryStore) SaveSettings(ctx context.Context, s *prayer.Settings) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *s
	saved.UpdatedAt = time.Now()
	m.settings = &saved
	return nil
}

func copyDay(d *prayer.Day) *prayer.Day {
	entries, _ := d.Entries()
	copied := make([]*prayer.Entry, 0, len(entries))
	for _, e := range entries {
		c := *e
		if e.PerformedAt != nil {
			at := *e.PerformedAt
			c.PerformedAt = &at
		}
		copied = append(copied, &c)
	}
	return prayer.RestoreDay(d.ID, d.Date, d.StreakProtected, d.CreatedAt, copied)
}

// Reminders

func (m *MemoryStore) UpsertReminder(ctx context.Context, r *notification.Reminder) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	saved := *r
	saved.Status = notification.ReminderPending
	saved.SentAt = nil
	saved.FailureReason = nil
	saved.RetryCount = 0
	saved.UpdatedAt = now
	if existing, ok := m.reminders[r.Identifier]; ok {
		saved.CreatedAt = existing.CreatedAt
	} else {
		saved.CreatedAt = now
	}
	m.reminders[r.Identifier] = &saved
	return nil
}

func (m *MemoryStore) DeleteReminders(ctx context.Context, identifiers []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for _, id := range identifiers {
		if _, ok := m.reminders[id]; ok {
			delete(m.reminders, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) DeletePendingReminders(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var deleted int64
	for id, r := range m.reminders {
		if r.Status == notification.ReminderPending {
			delete(m.reminders, id)
			deleted++
		}
	}
	return deleted, nil
}

func (m *MemoryStore) PendingReminders(ctx context.Context) ([]*notification.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filterReminders(func(r *notification.Reminder) bool {
		return r.Status == notification.ReminderPending
	}, 0), nil
}

func (m *MemoryStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*notification.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.filterReminders(func(r *notification.Reminder) bool {
		return r.Status == notification.ReminderPending && !r.FireAt.After(now)
	}, limit), nil
}

func (m *MemoryStore) filterReminders(keep func(*notification.Reminder) bool, limit int) []*notification.Reminder {
	var out []*notification.Reminder
	for _, r := range m.reminders {
		if keep(r) {
			c := *r
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].Identifier < out[j].Identifier
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *MemoryStore) MarkReminderSent(ctx context.Context, identifier string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if r, ok := m.reminders[identifier]; ok {
		r.Status = notification.ReminderSent
		r.SentAt = &at
		r.UpdatedAt = time.Now()
	}
	return nil
}

func (m *MemoryStore) MarkReminderFailed(ctx context.Context, identifier, reason string, retryAt *time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[identifier]
	if !ok {
		return 0, nil
	}
	r.RetryCount++
	r.FailureReason = &reason
	r.UpdatedAt = time.Now()
	if retryAt != nil {
		r.Status = notification.ReminderPending
		r.FireAt = *retryAt
	} else {
		r.Status = notification.ReminderFailed
	}
	return r.RetryCount, nil
}

func (m *MemoryStore) PurgeDeliveredBefore(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var purged int64
	for id, r := range m.reminders {
		if r.Status != notification.ReminderPending && r.UpdatedAt.Before(before) {
			delete(m.reminders, id)
			purged++
		}
	}
	return purged, nil
}

func (m *MemoryStore) AddDeviceToken(ctx context.Context, token notification.DeviceToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.tokens[token.Token]; ok {
		token.CreatedAt = existing.CreatedAt
	} else if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	m.tokens[token.Token] = token
	return nil
}

func (m *MemoryStore) DeviceTokens(ctx context.Context) ([]notification.DeviceToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	tokens := make([]notification.DeviceToken, 0, len(m.tokens))
	for _, t := range m.tokens {
		tokens = append(tokens, t)
	}
	slices.SortFunc(tokens, func(a, b notification.DeviceToken) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return tokens, nil
}
