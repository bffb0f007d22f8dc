package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/achievement"
	"salahStreakAPI/internal/metrics"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
	"salahStreakAPI/internal/store"
	"salahStreakAPI/internal/widget"
	"salahStreakAPI/utils"
)

// PrayerService owns the (Day, Stats) pair. Every mutation runs under one
// mutex and is persisted with a single SaveDay call.
type PrayerService struct {
	mu        sync.Mutex
	repo      store.Repository
	windows   *WindowService
	reminders *ReminderScheduler
	publisher widget.Publisher
	loc       *time.Location
}

type TransitionResult struct {
	Entry     *prayer.Entry       `json:"entry"`
	State     prayer.DisplayState `json:"state"`
	NewBadges []achievement.Badge `json:"new_badges"`
	Stats     *stats.Stats        `json:"stats"`
}

type DayClosure struct {
	Date      string              `json:"date"`
	Outcome   DayOutcome          `json:"outcome"`
	Finalized int                 `json:"finalized"`
	NewBadges []achievement.Badge `json:"new_badges"`
	Stats     *stats.Stats        `json:"stats"`
}

type ActionResult struct {
	Action     string                 `json:"action"`
	Transition *TransitionResult      `json:"transition,omitempty"`
	Snoozed    *notification.Reminder `json:"snoozed,omitempty"`
}

// NewPrayerService wires the orchestrator. publisher may be nil.
func NewPrayerService(repo store.Repository, windows *WindowService, reminders *ReminderScheduler, publisher widget.Publisher, loc *time.Location) *PrayerService {
	if loc == nil {
		loc = time.UTC
	}
	return &PrayerService{
		repo:      repo,
		windows:   windows,
		reminders: reminders,
		publisher: publisher,
		loc:       loc,
	}
}

func (s *PrayerService) Location() *time.Location {
	return s.loc
}

func (s *PrayerService) today(now time.Time) time.Time {
	return utils.StartOfDay(now, s.loc)
}

// Today returns today's day, generating its entries when coordinates are
// known.
func (s *PrayerService) Today(ctx context.Context, now time.Time) (*prayer.Day, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	return s.ensureDay(ctx, s.today(now), st, now)
}

// ensureDay loads the day and generates it if it is still uninitialized
// and open. Missing coordinates or an unavailable calculation leave the day
// uninitialized without failing.
func (s *PrayerService) ensureDay(ctx context.Context, date time.Time, st *stats.Stats, now time.Time) (*prayer.Day, error) {
	day, err := s.repo.FetchOrCreateDay(ctx, date)
	if err != nil {
		return nil, err
	}
	if day.State() == prayer.DayGenerated || st.Closed(date) {
		return day, nil
	}

	settings, err := s.repo.FetchOrCreateSettings(ctx)
	if err != nil {
		return nil, err
	}

	err = s.generateDay(ctx, day, settings, now)
	switch {
	case errors.Is(err, prayer.ErrMissingCoordinates):
		log.Debug().Str("date", utils.DateString(date)).Msg("coordinates not set, day left uninitialized")
		return day, nil
	case errors.Is(err, prayer.ErrCalculationUnavailable):
		log.Warn().Err(err).Str("date", utils.DateString(date)).Msg("prayer times unavailable, day left uninitialized")
		return day, nil
	case err != nil:
		return nil, err
	}
	return day, nil
}

func (s *PrayerService) generateDay(ctx context.Context, day *prayer.Day, settings *prayer.Settings, now time.Time) error {
	coords, ok := settings.Coordinates()
	if !ok {
		return prayer.ErrMissingCoordinates
	}

	windows, err := s.windows.ComputeWindows(day.Date, coords, settings.CalculationMethod, settings.Madhab)
	if err != nil {
		return err
	}
	if err := day.Generate(windows); err != nil {
		return err
	}
	if err := s.repo.SaveDay(ctx, day, nil); err != nil {
		return fmt.Errorf("failed to save generated day: %w", err)
	}

	log.Info().Str("date", utils.DateString(day.Date)).Msg("generated prayer entries")

	if settings.NotificationsEnabled {
		for _, w := range windows {
			s.reminders.Schedule(ctx, w, day.Date, now)
		}
	}
	return nil
}

// CurrentState is the pull-based read of today. It derives display states
// from the clock and never mutates stored statuses.
func (s *PrayerService) CurrentState(ctx context.Context, now time.Time) (*prayer.DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	day, err := s.ensureDay(ctx, s.today(now), st, now)
	if err != nil {
		return nil, err
	}
	return buildDayView(day, st, now), nil
}

// Recompute generates today if needed, closes every elapsed day and
// publishes the widget snapshot.
func (s *PrayerService) Recompute(ctx context.Context, now time.Time) (*prayer.DayView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.closeElapsedLocked(ctx, st, now); err != nil {
		log.Error().Err(err).Msg("failed to close elapsed days")
	}

	day, err := s.ensureDay(ctx, s.today(now), st, now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, day, st, now)
	return buildDayView(day, st, now), nil
}

func buildDayView(day *prayer.Day, st *stats.Stats, now time.Time) *prayer.DayView {
	view := &prayer.DayView{
		Date:             utils.DateString(day.Date),
		State:            day.State(),
		Prayers:          []prayer.PrayerCard{},
		CompletedCount:   day.CompletedCount(),
		StreakProtected:  day.StreakProtected,
		CurrentStreak:    st.CurrentStreak,
		BestStreak:       st.BestStreak,
		FreezesAvailable: st.FreezesAvailable,
		AsOf:             now,
	}

	entries, _ := day.Entries()
	for _, e := range entries {
		view.Prayers = append(view.Prayers, prayer.PrayerCard{
			Prayer:        e.Kind,
			DisplayName:   e.Kind.DisplayName(),
			Icon:          e.Kind.Icon(),
			Status:        e.Status,
			State:         DeriveState(e, now),
			ScheduledTime: e.ScheduledDate,
			WindowStart:   e.WindowStart,
			WindowEnd:     e.WindowEnd,
			PerformedAt:   e.PerformedAt,
			Source:        e.Source,
		})
	}
	return view
}

func (s *PrayerService) MarkDone(ctx context.Context, date time.Time, kind prayer.Kind, source prayer.EntrySource, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, date, kind, now, func(e *prayer.Entry, st *stats.Stats) error {
		return ApplyMarkDone(e, st, now, source)
	})
}

func (s *PrayerService) MarkQada(ctx context.Context, date time.Time, kind prayer.Kind, source prayer.EntrySource, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, date, kind, now, func(e *prayer.Entry, st *stats.Stats) error {
		return ApplyMarkQada(e, st, now, source)
	})
}

func (s *PrayerService) UndoDone(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, date, kind, now, ApplyUndoDone)
}

func (s *PrayerService) UndoQada(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*TransitionResult, error) {
	return s.transition(ctx, date, kind, now, ApplyUndoQada)
}

func (s *PrayerService) transition(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time, apply func(*prayer.Entry, *stats.Stats) error) (*TransitionResult, error) {
	if !kind.Valid() {
		return nil, prayer.ErrUnknownPrayer
	}
	date = utils.StartOfDay(date, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	if st.Closed(date) {
		return nil, prayer.ErrDayClosed
	}

	day, err := s.ensureDay(ctx, date, st, now)
	if err != nil {
		return nil, err
	}
	entry, err := day.Entry(kind)
	if err != nil {
		return nil, err
	}

	before := entry.Status
	if err := apply(entry, st); err != nil {
		return nil, fmt.Errorf("%s is %s: %w", kind, DeriveState(entry, now), err)
	}

	var awarded []achievement.Badge
	if entry.Status.Completed() {
		awarded = CheckAndAward(st, day)
	}

	if err := s.repo.SaveDay(ctx, day, st); err != nil {
		return nil, fmt.Errorf("failed to save %s transition: %w", kind, err)
	}

	metrics.PrayersMarked.WithLabelValues(string(kind), string(entry.Status)).Inc()
	for _, b := range awarded {
		metrics.BadgesAwarded.WithLabelValues(string(b.ID)).Inc()
		log.Info().Str("badge", string(b.ID)).Msg("badge unlocked")
	}

	log.Info().
		Str("prayer", string(kind)).
		Str("date", utils.DateString(date)).
		Str("from", string(before)).
		Str("to", string(entry.Status)).
		Msg("prayer status changed")

	switch entry.Status {
	case prayer.StatusDone, prayer.StatusQada:
		s.reminders.Cancel(ctx, kind, date)
	case prayer.StatusPending:
		if entry.WindowEnd.After(now) && s.notificationsEnabled(ctx) {
			s.reminders.Reschedule(ctx, entry.Window(), date, now)
		}
	}

	if utils.SameCivilDate(date, s.today(now)) {
		s.publish(ctx, day, st, now)
	}

	return &TransitionResult{
		Entry:     entry,
		State:     DeriveState(entry, now),
		NewBadges: awarded,
		Stats:     st,
	}, nil
}

func (s *PrayerService) notificationsEnabled(ctx context.Context) bool {
	settings, err := s.repo.FetchOrCreateSettings(ctx)
	if err != nil {
		log.Error().Err(err).Msg("failed to load settings")
		return false
	}
	return settings.NotificationsEnabled
}

// CloseDay processes the end of every unclosed day up to and including
// date, oldest first.
func (s *PrayerService) CloseDay(ctx context.Context, date time.Time, now time.Time) ([]*DayClosure, error) {
	date = utils.StartOfDay(date, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	if st.Closed(date) {
		return nil, prayer.ErrDayAlreadyClosed
	}

	start, err := s.firstUnclosed(ctx, st)
	if err != nil {
		return nil, err
	}
	if start.IsZero() || start.After(date) {
		start = date
	}

	var closures []*DayClosure
	for d := start; !d.After(date); d = utils.AddDays(d, 1) {
		closure, err := s.closeDayLocked(ctx, d, st, now)
		if err != nil {
			return closures, err
		}
		closures = append(closures, closure)
	}
	return closures, nil
}

// CloseElapsedDays closes past days in order until one still has an open
// window.
func (s *PrayerService) CloseElapsedDays(ctx context.Context, now time.Time) ([]*DayClosure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	return s.closeElapsedLocked(ctx, st, now)
}

func (s *PrayerService) closeElapsedLocked(ctx context.Context, st *stats.Stats, now time.Time) ([]*DayClosure, error) {
	start, err := s.firstUnclosed(ctx, st)
	if err != nil || start.IsZero() {
		return nil, err
	}

	today := s.today(now)
	var closures []*DayClosure
	for d := start; d.Before(today); d = utils.AddDays(d, 1) {
		closure, err := s.closeDayLocked(ctx, d, st, now)
		if errors.Is(err, prayer.ErrDayStillOpen) {
			break
		}
		if err != nil {
			return closures, err
		}
		closures = append(closures, closure)
	}
	return closures, nil
}

// firstUnclosed is the day after the watermark, or the earliest stored day
// when nothing has been closed yet. Zero means there is nothing to close.
func (s *PrayerService) firstUnclosed(ctx context.Context, st *stats.Stats) (time.Time, error) {
	if st.LastClosedDate != nil {
		return utils.AddDays(utils.StartOfDay(*st.LastClosedDate, s.loc), 1), nil
	}
	earliest, ok, err := s.repo.EarliestDay(ctx)
	if err != nil {
		return time.Time{}, err
	}
	if !ok {
		return time.Time{}, nil
	}
	return utils.StartOfDay(earliest, s.loc), nil
}

// closeDayLocked finalizes one day. A generated day closes once its Isha
// window has elapsed; an uninitialized one once the calendar day is over.
func (s *PrayerService) closeDayLocked(ctx context.Context, date time.Time, st *stats.Stats, now time.Time) (*DayClosure, error) {
	if st.Closed(date) {
		return nil, prayer.ErrDayAlreadyClosed
	}

	day, err := s.repo.FetchOrCreateDay(ctx, date)
	if err != nil {
		return nil, err
	}

	if isha, err := day.Entry(prayer.Isha); err == nil {
		if !isha.Elapsed(now) {
			return nil, prayer.ErrDayStillOpen
		}
	} else if !now.Before(utils.AddDays(date, 1)) {
		log.Warn().Str("date", utils.DateString(date)).Msg("closing day without prayer entries")
	} else {
		return nil, prayer.ErrDayStillOpen
	}

	next := st.Clone()
	finalized := day.FinalizeElapsed(now)
	outcome, err := ProcessDayEnd(day, next)
	if err != nil {
		return nil, err
	}
	awarded := CheckAndAward(next, day)
	closed := date
	next.LastClosedDate = &closed

	if err := s.repo.SaveDay(ctx, day, next); err != nil {
		return nil, fmt.Errorf("failed to save closed day %s: %w", utils.DateString(date), err)
	}
	*st = *next

	for _, kind := range prayer.Kinds {
		s.reminders.Cancel(ctx, kind, date)
	}

	metrics.DayClosures.WithLabelValues(string(outcome)).Inc()
	metrics.CurrentStreak.Set(float64(st.CurrentStreak))
	for _, b := range awarded {
		metrics.BadgesAwarded.WithLabelValues(string(b.ID)).Inc()
	}

	log.Info().
		Str("date", utils.DateString(date)).
		Str("outcome", string(outcome)).
		Int("finalized", finalized).
		Int("streak", st.CurrentStreak).
		Int("freezes", st.FreezesAvailable).
		Msg("day closed")

	return &DayClosure{
		Date:      utils.DateString(date),
		Outcome:   outcome,
		Finalized: finalized,
		NewBadges: awarded,
		Stats:     st.Clone(),
	}, nil
}

func (s *PrayerService) Settings(ctx context.Context) (*prayer.Settings, error) {
	return s.repo.FetchOrCreateSettings(ctx)
}

// UpdateSettings applies a partial settings change. Window-affecting
// changes move today's entries and reschedule pending reminders; toggling
// notifications cancels or schedules them.
func (s *PrayerService) UpdateSettings(ctx context.Context, req *prayer.UpdateSettingsRequest, now time.Time) (*prayer.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings, err := s.repo.FetchOrCreateSettings(ctx)
	if err != nil {
		return nil, err
	}

	windowsChanged := false
	if req.CalculationMethod != nil && *req.CalculationMethod != settings.CalculationMethod {
		settings.CalculationMethod = *req.CalculationMethod
		windowsChanged = true
	}
	if req.Madhab != nil && *req.Madhab != settings.Madhab {
		settings.Madhab = *req.Madhab
		windowsChanged = true
	}
	if req.Latitude != nil && (settings.Latitude == nil || *settings.Latitude != *req.Latitude) {
		lat := *req.Latitude
		settings.Latitude = &lat
		windowsChanged = true
	}
	if req.Longitude != nil && (settings.Longitude == nil || *settings.Longitude != *req.Longitude) {
		lng := *req.Longitude
		settings.Longitude = &lng
		windowsChanged = true
	}
	if req.CityName != nil {
		city := *req.CityName
		settings.CityName = &city
	}
	notificationsChanged := req.NotificationsEnabled != nil && *req.NotificationsEnabled != settings.NotificationsEnabled
	if notificationsChanged {
		settings.NotificationsEnabled = *req.NotificationsEnabled
	}

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, err
	}

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	today := s.today(now)

	day, err := s.repo.FetchOrCreateDay(ctx, today)
	if err != nil {
		return nil, err
	}

	// A freshly generated day already has its cascades scheduled.
	scheduled := false
	switch {
	case day.State() == prayer.DayUninitialized:
		if day, err = s.ensureDay(ctx, today, st, now); err != nil {
			return nil, err
		}
		scheduled = day.State() == prayer.DayGenerated
	case windowsChanged && !st.Closed(today):
		if err := s.moveWindows(ctx, day, settings, now); err != nil {
			log.Warn().Err(err).Msg("kept previous prayer windows")
		} else {
			scheduled = true
		}
	}

	switch {
	case notificationsChanged && !settings.NotificationsEnabled:
		s.reminders.CancelAll(ctx)
	case notificationsChanged && !scheduled:
		s.schedulePending(ctx, day, now)
	}

	s.publish(ctx, day, st, now)
	return settings, nil
}

func (s *PrayerService) moveWindows(ctx context.Context, day *prayer.Day, settings *prayer.Settings, now time.Time) error {
	coords, ok := settings.Coordinates()
	if !ok {
		return prayer.ErrMissingCoordinates
	}
	windows, err := s.windows.ComputeWindows(day.Date, coords, settings.CalculationMethod, settings.Madhab)
	if err != nil {
		return err
	}
	if err := day.UpdateWindows(windows); err != nil {
		return err
	}
	if err := s.repo.SaveDay(ctx, day, nil); err != nil {
		return fmt.Errorf("failed to save updated windows: %w", err)
	}
	if settings.NotificationsEnabled {
		s.schedulePending(ctx, day, now)
	}
	return nil
}

// schedulePending reschedules the cascade of every pending prayer of day.
func (s *PrayerService) schedulePending(ctx context.Context, day *prayer.Day, now time.Time) {
	entries, _ := day.Entries()
	for _, e := range entries {
		if e.Status == prayer.StatusPending {
			s.reminders.Reschedule(ctx, e.Window(), day.Date, now)
		}
	}
}

// HandleAction runs a notification action button against the prayer the
// reminder was for.
func (s *PrayerService) HandleAction(ctx context.Context, req *notification.ActionRequest, now time.Time) (*ActionResult, error) {
	parsed, err := notification.ParseIdentifier(req.Identifier)
	if err != nil {
		return nil, err
	}
	date, err := utils.ParseDate(parsed.Date, s.loc)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", req.Identifier, prayer.ErrInvalidIdentifier)
	}

	switch req.Action {
	case notification.ActionMarkDone:
		res, err := s.MarkDone(ctx, date, parsed.Prayer, prayer.SourceNotification, now)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Action: req.Action, Transition: res}, nil

	case notification.ActionSnooze:
		r, err := s.Snooze(ctx, date, parsed.Prayer, now)
		if err != nil {
			return nil, err
		}
		return &ActionResult{Action: req.Action, Snoozed: r}, nil
	}
	return nil, fmt.Errorf("unsupported action %q: %w", req.Action, prayer.ErrInvalidTransition)
}

// Snooze schedules one more reminder for a pending prayer whose window is
// still open.
func (s *PrayerService) Snooze(ctx context.Context, date time.Time, kind prayer.Kind, now time.Time) (*notification.Reminder, error) {
	date = utils.StartOfDay(date, s.loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return nil, err
	}
	if st.Closed(date) {
		return nil, prayer.ErrDayClosed
	}
	day, err := s.repo.FetchOrCreateDay(ctx, date)
	if err != nil {
		return nil, err
	}
	entry, err := day.Entry(kind)
	if err != nil {
		return nil, err
	}
	if entry.Status != prayer.StatusPending || entry.Elapsed(now) {
		return nil, prayer.ErrInvalidTransition
	}
	return s.reminders.Snooze(ctx, kind, date, now)
}

// Snapshot builds the widget view of today without publishing it.
func (s *PrayerService) Snapshot(ctx context.Context, now time.Time) (widget.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.repo.FetchOrCreateStats(ctx)
	if err != nil {
		return widget.Snapshot{}, err
	}
	day, err := s.repo.FetchOrCreateDay(ctx, s.today(now))
	if err != nil {
		return widget.Snapshot{}, err
	}
	return buildSnapshot(day, st, now), nil
}

func buildSnapshot(day *prayer.Day, st *stats.Stats, now time.Time) widget.Snapshot {
	snap := widget.Snapshot{
		Prayers:       []widget.Entry{},
		CurrentStreak: st.CurrentStreak,
		UpdatedAt:     now,
	}
	entries, _ := day.Entries()
	for _, e := range entries {
		snap.Prayers = append(snap.Prayers, widget.Entry{
			Prayer:        string(e.Kind),
			Status:        string(e.Status),
			ScheduledTime: e.ScheduledDate,
			WindowEnd:     e.WindowEnd,
		})
	}
	return snap
}

func (s *PrayerService) publish(ctx context.Context, day *prayer.Day, st *stats.Stats, now time.Time) {
	if s.publisher == nil || !utils.SameCivilDate(day.Date, s.today(now)) {
		return
	}
	if err := s.publisher.Publish(ctx, buildSnapshot(day, st, now)); err != nil {
		log.Error().Err(err).Msg("failed to publish widget snapshot")
	}
}

// Windows previews the prayer windows of date under the current settings.
func (s *PrayerService) Windows(ctx context.Context, date time.Time) (*prayer.WindowsResponse, error) {
	settings, err := s.repo.FetchOrCreateSettings(ctx)
	if err != nil {
		return nil, err
	}
	coords, ok := settings.Coordinates()
	if !ok {
		return nil, prayer.ErrMissingCoordinates
	}

	date = utils.StartOfDay(date, s.loc)
	windows, err := s.windows.ComputeWindows(date, coords, settings.CalculationMethod, settings.Madhab)
	if err != nil {
		return nil, err
	}
	return &prayer.WindowsResponse{
		Date:    utils.DateString(date),
		Method:  settings.CalculationMethod.DisplayName(),
		Madhab:  settings.Madhab,
		Windows: windows,
	}, nil
}
