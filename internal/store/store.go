package store

import (
	"context"
	"time"

	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
)

// Repository persists the owner's prayer log. Days are keyed by their
// calendar date; stats and settings are singletons.
type Repository interface {
	FetchOrCreateDay(ctx context.Context, date time.Time) (*prayer.Day, error)
	ListDays(ctx context.Context, from, to time.Time) ([]*prayer.Day, error)
	EarliestDay(ctx context.Context) (time.Time, bool, error)
	FetchOrCreateStats(ctx context.Context) (*stats.Stats, error)
	FetchOrCreateSettings(ctx context.Context) (*prayer.Settings, error)
	SaveSettings(ctx context.Context, s *prayer.Settings) error
	// SaveDay writes the day, its entries and, when st is not nil, the
	// stats in one transaction.
	SaveDay(ctx context.Context, day *prayer.Day, st *stats.Stats) error
	Ping(ctx context.Context) error
}

// ReminderQueue holds scheduled reminders until the dispatcher delivers
// them, plus the device tokens they are delivered to.
type ReminderQueue interface {
	UpsertReminder(ctx context.Context, r *notification.Reminder) error
	DeleteReminders(ctx context.Context, identifiers []string) (int64, error)
	DeletePendingReminders(ctx context.Context) (int64, error)
	PendingReminders(ctx context.Context) ([]*notification.Reminder, error)
	DueReminders(ctx context.Context, now time.Time, limit int) ([]*notification.Reminder, error)
	MarkReminderSent(ctx context.Context, identifier string, at time.Time) error
	MarkReminderFailed(ctx context.Context, identifier, reason string, retryAt *time.Time) (int, error)
	PurgeDeliveredBefore(ctx context.Context, before time.Time) (int64, error)

	AddDeviceToken(ctx context.Context, token notification.DeviceToken) error
	DeviceTokens(ctx context.Context) ([]notification.DeviceToken, error)
}
