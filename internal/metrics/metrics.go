package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	PrayersMarked = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salahstreak_prayers_marked_total",
			Help: "Status transitions applied to prayer entries",
		},
		[]string{"prayer", "status"},
	)
	RemindersScheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salahstreak_reminders_scheduled_total",
			Help: "Reminder cascade points scheduled",
		},
	)
	RemindersSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salahstreak_reminders_suppressed_total",
			Help: "Cascade points dropped because they were in the past or too close to the window end",
		},
	)
	RemindersCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "salahstreak_reminders_cancelled_total",
			Help: "Scheduled reminders removed before delivery",
		},
	)
	RemindersDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salahstreak_reminders_delivered_total",
			Help: "Reminder delivery attempts by result",
		},
		[]string{"result"},
	)
	DayClosures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salahstreak_day_closures_total",
			Help: "Processed day ends by streak outcome",
		},
		[]string{"outcome"},
	)
	BadgesAwarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "salahstreak_badges_awarded_total",
			Help: "Badges unlocked",
		},
		[]string{"badge"},
	)
	CurrentStreak = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "salahstreak_current_streak_days",
			Help: "Current streak after the last day closure",
		},
	)
)

var registerOnce sync.Once

// Register adds the domain collectors to the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			PrayersMarked,
			RemindersScheduled,
			RemindersSuppressed,
			RemindersCancelled,
			RemindersDelivered,
			DayClosures,
			BadgesAwarded,
			CurrentStreak,
		)
	})
}
