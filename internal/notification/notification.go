package notification

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/utils"
)

const (
	Title                  = "SalahStreak"
	CategoryPrayerReminder = "PRAYER_REMINDER"
	ActionMarkDone         = "MARK_DONE"
	ActionSnooze           = "SNOOZE"

	// CascadeLength is the number of reminder slots per prayer window.
	CascadeLength = 4
	snoozeSlot    = "snooze"
	SnoozeDelay   = 20 * time.Minute
)

type ReminderStatus string

const (
	ReminderPending ReminderStatus = "pending"
	ReminderSent    ReminderStatus = "sent"
	ReminderFailed  ReminderStatus = "failed"
)

// Reminder is one scheduled notification, keyed by its deterministic
// identifier.
type Reminder struct {
	Identifier    string         `json:"identifier" db:"identifier"`
	Prayer        prayer.Kind    `json:"prayer" db:"prayer"`
	DayDate       string         `json:"day_date" db:"day_date"`
	FireAt        time.Time      `json:"fire_at" db:"fire_at"`
	Title         string         `json:"title" db:"title"`
	Body          string         `json:"body" db:"body"`
	Category      string         `json:"category" db:"category"`
	Status        ReminderStatus `json:"status" db:"status"`
	SentAt        *time.Time     `json:"sent_at,omitempty" db:"sent_at"`
	FailureReason *string        `json:"failure_reason,omitempty" db:"failure_reason"`
	RetryCount    int            `json:"retry_count" db:"retry_count"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`
}

// Data is the payload attached to the push message.
func (r Reminder) Data() map[string]any {
	return map[string]any{
		"identifier": r.Identifier,
		"prayer":     string(r.Prayer),
		"date":       r.DayDate,
		"category":   r.Category,
	}
}

// ReminderEvent is one computed point of a prayer's reminder cascade.
type ReminderEvent struct {
	Identifier     string      `json:"identifier"`
	Prayer         prayer.Kind `json:"prayer"`
	FireAt         time.Time   `json:"fire_at"`
	MessageVariant int         `json:"message_variant"`
}

type DeviceToken struct {
	Token     string    `json:"token" db:"token"`
	Platform  string    `json:"platform" db:"platform"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

func Identifier(kind prayer.Kind, day time.Time, index int) string {
	return fmt.Sprintf("%s_%s_%d", kind, utils.DateString(day), index)
}

func SnoozeIdentifier(kind prayer.Kind, day time.Time) string {
	return fmt.Sprintf("%s_%s_%s", kind, utils.DateString(day), snoozeSlot)
}

// CascadeIdentifiers rebuilds every identifier that can exist for one
// prayer on one day, whether or not it was scheduled.
func CascadeIdentifiers(kind prayer.Kind, day time.Time) []string {
	ids := make([]string, 0, CascadeLength+1)
	for i := 0; i < CascadeLength; i++ {
		ids = append(ids, Identifier(kind, day, i))
	}
	return append(ids, SnoozeIdentifier(kind, day))
}

type ParsedIdentifier struct {
	Prayer prayer.Kind
	Date   string
	Slot   string
}

func ParseIdentifier(id string) (ParsedIdentifier, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 {
		return ParsedIdentifier{}, fmt.Errorf("%q: %w", id, prayer.ErrInvalidIdentifier)
	}

	kind, err := prayer.ParseKind(parts[0])
	if err != nil {
		return ParsedIdentifier{}, fmt.Errorf("%q: %w", id, prayer.ErrInvalidIdentifier)
	}
	if _, err := time.Parse(utils.DateLayout, parts[1]); err != nil {
		return ParsedIdentifier{}, fmt.Errorf("%q: %w", id, prayer.ErrInvalidIdentifier)
	}
	if parts[2] != snoozeSlot {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n < 0 || n >= CascadeLength {
			return ParsedIdentifier{}, fmt.Errorf("%q: %w", id, prayer.ErrInvalidIdentifier)
		}
	}

	return ParsedIdentifier{Prayer: kind, Date: parts[1], Slot: parts[2]}, nil
}

// Body returns the message text for a cascade slot. Out-of-range variants
// use the last message.
func Body(kind prayer.Kind, variant int) string {
	name := kind.DisplayName()
	switch variant {
	case 0:
		return fmt.Sprintf("It's time for %s prayer.", name)
	case 1:
		return fmt.Sprintf("Don't forget your %s prayer.", name)
	case 2:
		return fmt.Sprintf("%s prayer: don't let it slip.", name)
	default:
		return fmt.Sprintf("Last reminder: %s prayer ends soon.", name)
	}
}

func SnoozeBody(kind prayer.Kind) string {
	return fmt.Sprintf("Snoozed reminder: %s prayer is still open.", kind.DisplayName())
}
