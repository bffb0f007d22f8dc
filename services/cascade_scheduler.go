package services

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog/log"

	"salahStreakAPI/internal/metrics"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/utils"
)

// cascadeFractions are the fire points as fractions of the window length.
var cascadeFractions = [notification.CascadeLength]float64{0, 0.25, 0.5, 0.85}

// minLastReminderLead is the least time the last reminder must leave
// before the window closes.
const minLastReminderLead = 30 * time.Minute

// Notifier delivers scheduled reminders. Identifiers are unique; scheduling
// an existing one replaces it.
type Notifier interface {
	ScheduleLocal(ctx context.Context, r *notification.Reminder) error
	Cancel(ctx context.Context, identifiers []string) error
	CancelAll(ctx context.Context) error
}

// BuildCascade computes the reminders for one window. Points already in the
// past are dropped, as is the last point when it would fire within 30
// minutes of the window end.
func BuildCascade(w prayer.Window, day, now time.Time) []notification.ReminderEvent {
	duration := w.Duration()
	events := make([]notification.ReminderEvent, 0, len(cascadeFractions))

	for i, fraction := range cascadeFractions {
		fireAt := w.Start.Add(time.Duration(math.Round(float64(duration) * fraction)))

		if i == len(cascadeFractions)-1 && w.End.Sub(fireAt) < minLastReminderLead {
			continue
		}
		if !fireAt.After(now) {
			continue
		}

		events = append(events, notification.ReminderEvent{
			Identifier:     notification.Identifier(w.Kind, day, i),
			Prayer:         w.Kind,
			FireAt:         fireAt,
			MessageVariant: i,
		})
	}
	return events
}

// ReminderScheduler turns cascades into notifier calls. Failures are
// logged and never returned to the caller.
type ReminderScheduler struct {
	notifier Notifier
}

func NewReminderScheduler(notifier Notifier) *ReminderScheduler {
	return &ReminderScheduler{notifier: notifier}
}

// Schedule queues the window's cascade and returns how many reminders were
// accepted.
func (s *ReminderScheduler) Schedule(ctx context.Context, w prayer.Window, day, now time.Time) int {
	events := BuildCascade(w, day, now)
	metrics.RemindersSuppressed.Add(float64(len(cascadeFractions) - len(events)))

	scheduled := 0
	for _, ev := range events {
		r := &notification.Reminder{
			Identifier: ev.Identifier,
			Prayer:     ev.Prayer,
			DayDate:    utils.DateString(day),
			FireAt:     ev.FireAt,
			Title:      notification.Title,
			Body:       notification.Body(ev.Prayer, ev.MessageVariant),
			Category:   notification.CategoryPrayerReminder,
			Status:     notification.ReminderPending,
		}
		if err := s.notifier.ScheduleLocal(ctx, r); err != nil {
			log.Error().Err(err).Str("identifier", ev.Identifier).Msg("failed to schedule reminder")
			continue
		}
		scheduled++
	}
	metrics.RemindersScheduled.Add(float64(scheduled))
	return scheduled
}

// Cancel removes every reminder that can exist for kind on day, scheduled
// or not.
func (s *ReminderScheduler) Cancel(ctx context.Context, kind prayer.Kind, day time.Time) {
	ids := notification.CascadeIdentifiers(kind, day)
	if err := s.notifier.Cancel(ctx, ids); err != nil {
		log.Error().Err(err).Str("prayer", string(kind)).Str("date", utils.DateString(day)).Msg("failed to cancel reminders")
	}
}

func (s *ReminderScheduler) Reschedule(ctx context.Context, w prayer.Window, day, now time.Time) int {
	s.Cancel(ctx, w.Kind, day)
	return s.Schedule(ctx, w, day, now)
}

// Snooze queues a single follow-up reminder SnoozeDelay from now, replacing
// any earlier snooze for the same prayer.
func (s *ReminderScheduler) Snooze(ctx context.Context, kind prayer.Kind, day, now time.Time) (*notification.Reminder, error) {
	r := &notification.Reminder{
		Identifier: notification.SnoozeIdentifier(kind, day),
		Prayer:     kind,
		DayDate:    utils.DateString(day),
		FireAt:     now.Add(notification.SnoozeDelay),
		Title:      notification.Title,
		Body:       notification.SnoozeBody(kind),
		Category:   notification.CategoryPrayerReminder,
		Status:     notification.ReminderPending,
	}
	if err := s.notifier.ScheduleLocal(ctx, r); err != nil {
		return nil, err
	}
	metrics.RemindersScheduled.Inc()
	return r, nil
}

func (s *ReminderScheduler) CancelAll(ctx context.Context) {
	if err := s.notifier.CancelAll(ctx); err != nil {
		log.Error().Err(err).Msg("failed to cancel all reminders")
	}
}
