package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"salahStreakAPI/internal/astro"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/store"
	"salahStreakAPI/internal/widget"
	"salahStreakAPI/utils"
)

// fixedCalculator returns the same wall-clock times every day. Hanafi Asr
// starts an hour later.
type fixedCalculator struct {
	failOn map[string]bool
}

func (c fixedCalculator) Compute(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, asrFactor int) (astro.Times, error) {
	if c.failOn[utils.DateString(date)] {
		return astro.Times{}, prayer.ErrCalculationUnavailable
	}
	y, m, d := date.Date()
	at := func(h, min int) time.Time {
		return time.Date(y, m, d, h, min, 0, 0, date.Location())
	}
	asr := at(15, 30)
	if asrFactor == 2 {
		asr = at(16, 30)
	}
	return astro.Times{
		Fajr:    at(5, 0),
		Sunrise: at(6, 30),
		Dhuhr:   at(12, 0),
		Asr:     asr,
		Maghrib: at(18, 0),
		Isha:    at(19, 30),
	}, nil
}

type recordingNotifier struct {
	mu        sync.Mutex
	scheduled map[string]*notification.Reminder
	cancelled []string
	cancelAll int
}

func newRecordingNotifier() *recordingNotifier {
	return &recordingNotifier{scheduled: make(map[string]*notification.Reminder)}
}

func (n *recordingNotifier) ScheduleLocal(ctx context.Context, r *notification.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled[r.Identifier] = r
	return nil
}

func (n *recordingNotifier) Cancel(ctx context.Context, identifiers []string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, id := range identifiers {
		delete(n.scheduled, id)
	}
	n.cancelled = append(n.cancelled, identifiers...)
	return nil
}

func (n *recordingNotifier) CancelAll(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.scheduled = make(map[string]*notification.Reminder)
	n.cancelAll++
	return nil
}

func (n *recordingNotifier) ids() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]string, 0, len(n.scheduled))
	for id := range n.scheduled {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

type recordingPublisher struct {
	mu        sync.Mutex
	snapshots []widget.Snapshot
}

func (p *recordingPublisher) Publish(ctx context.Context, s widget.Snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.snapshots = append(p.snapshots, s)
	return nil
}

func (p *recordingPublisher) last() (widget.Snapshot, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.snapshots) == 0 {
		return widget.Snapshot{}, false
	}
	return p.snapshots[len(p.snapshots)-1], true
}

type testEnv struct {
	store     *store.MemoryStore
	notifier  *recordingNotifier
	publisher *recordingPublisher
	svc       *PrayerService
}

// newTestEnv wires a service over the memory store, with coordinates set
// when withCoords is true.
func newTestEnv(withCoords bool) *testEnv {
	mem := store.NewMemoryStore(time.UTC)
	notifier := newRecordingNotifier()
	publisher := &recordingPublisher{}

	if withCoords {
		settings := prayer.DefaultSettings()
		lat, lng := 21.4225, 39.8262
		settings.Latitude = &lat
		settings.Longitude = &lng
		_ = mem.SaveSettings(context.Background(), settings)
	}

	svc := NewPrayerService(
		mem,
		NewWindowService(fixedCalculator{}),
		NewReminderScheduler(notifier),
		publisher,
		time.UTC,
	)
	return &testEnv{store: mem, notifier: notifier, publisher: publisher, svc: svc}
}

func at(day, hour, min int) time.Time {
	return time.Date(2026, time.October, day, hour, min, 0, 0, time.UTC)
}

func dateOf(day int) time.Time {
	return at(day, 0, 0)
}

// fixedWindows are the windows fixedCalculator yields for a Shafi day.
func fixedWindows(day int) []prayer.Window {
	windows, _ := NewWindowService(fixedCalculator{}).ComputeWindows(dateOf(day), prayer.Coordinates{}, prayer.MethodMuslimWorldLeague, prayer.MadhabShafi)
	return windows
}
