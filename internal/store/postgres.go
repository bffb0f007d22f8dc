package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
	"salahStreakAPI/utils"
)

type PgStore struct {
	db  *pgxpool.Pool
	loc *time.Location
}

var (
	_ Repository    = (*PgStore)(nil)
	_ ReminderQueue = (*PgStore)(nil)
)

// NewPgStore returns a store whose day dates are interpreted in loc.
func NewPgStore(db *pgxpool.Pool, loc *time.Location) *PgStore {
	return &PgStore{db: db, loc: loc}
}

func (s *PgStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

func (s *PgStore) FetchOrCreateDay(ctx context.Context, date time.Time) (*prayer.Day, error) {
	key := utils.DateString(date)

	_, err := s.db.Exec(ctx, `
		INSERT INTO days (id, day_date, streak_protected, created_at)
		VALUES ($1, $2::date, FALSE, NOW())
		ON CONFLICT (day_date) DO NOTHING
	`, uuid.New(), key)
	if err != nil {
		return nil, fmt.Errorf("failed to create day %s: %w", key, err)
	}

	var (
		id        uuid.UUID
		protected bool
		createdAt time.Time
	)
	err = s.db.QueryRow(ctx, `
		SELECT id, streak_protected, created_at FROM days WHERE day_date = $1::date
	`, key).Scan(&id, &protected, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch day %s: %w", key, err)
	}

	entries, err := s.entriesFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}

	return prayer.RestoreDay(id, utils.StartOfDay(date, s.loc), protected, createdAt, entries[id]), nil
}

func (s *PgStore) ListDays(ctx context.Context, from, to time.Time) ([]*prayer.Day, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, day_date, streak_protected, created_at
		FROM days
		WHERE day_date BETWEEN $1::date AND $2::date
		ORDER BY day_date
	`, utils.DateString(from), utils.DateString(to))
	if err != nil {
		return nil, fmt.Errorf("failed to list days: %w", err)
	}
	defer rows.Close()

	type dayRow struct {
		id        uuid.UUID
		date      time.Time
		protected bool
		createdAt time.Time
	}
	var dayRows []dayRow
	var ids []uuid.UUID
	for rows.Next() {
		var r dayRow
		if err := rows.Scan(&r.id, &r.date, &r.protected, &r.createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan day: %w", err)
		}
		dayRows = append(dayRows, r)
		ids = append(ids, r.id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate days: %w", err)
	}

	entries, err := s.entriesFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	days := make([]*prayer.Day, 0, len(dayRows))
	for _, r := range dayRows {
		days = append(days, prayer.RestoreDay(r.id, s.civilDate(r.date), r.protected, r.createdAt, entries[r.id]))
	}
	return days, nil
}

func (s *PgStore) EarliestDay(ctx context.Context) (time.Time, bool, error) {
	var earliest *time.Time
	if err := s.db.QueryRow(ctx, `SELECT MIN(day_date) FROM days`).Scan(&earliest); err != nil {
		return time.Time{}, false, fmt.Errorf("failed to fetch earliest day: %w", err)
	}
	if earliest == nil {
		return time.Time{}, false, nil
	}
	return s.civilDate(*earliest), true, nil
}

func (s *PgStore) entriesFor(ctx context.Context, dayIDs []uuid.UUID) (map[uuid.UUID][]*prayer.Entry, error) {
	result := make(map[uuid.UUID][]*prayer.Entry, len(dayIDs))
	if len(dayIDs) == 0 {
		return result, nil
	}

	rows, err := s.db.Query(ctx, `
		SELECT id, day_id, kind, scheduled_at, window_start, window_end, performed_at, status, source
		FROM prayer_entries
		WHERE day_id = ANY($1)
	`, dayIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prayer entries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			e                    prayer.Entry
			dayID                uuid.UUID
			kind, status, source string
		)
		if err := rows.Scan(&e.ID, &dayID, &kind, &e.ScheduledDate, &e.WindowStart, &e.WindowEnd, &e.PerformedAt, &status, &source); err != nil {
			return nil, fmt.Errorf("failed to scan prayer entry: %w", err)
		}
		e.Kind = prayer.Kind(kind)
		e.Status = prayer.Status(status)
		e.Source = prayer.EntrySource(source)
		result[dayID] = append(result[dayID], &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate prayer entries: %w", err)
	}
	return result, nil
}

func (s *PgStore) SaveDay(ctx context.Context, day *prayer.Day, st *stats.Stats) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `UPDATE days SET streak_protected = $2 WHERE id = $1`, day.ID, day.StreakProtected)
	if err != nil {
		return fmt.Errorf("failed to update day: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to update day %s: %w", utils.DateString(day.Date), pgx.ErrNoRows)
	}

	entries, _ := day.Entries()
	for _, e := range entries {
		_, err := tx.Exec(ctx, `
			INSERT INTO prayer_entries (id, day_id, kind, scheduled_at, window_start, window_end, performed_at, status, source)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE SET
				scheduled_at = EXCLUDED.scheduled_at,
				window_start = EXCLUDED.window_start,
				window_end = EXCLUDED.window_end,
				performed_at = EXCLUDED.performed_at,
				status = EXCLUDED.status,
				source = EXCLUDED.source
		`, e.ID, day.ID, string(e.Kind), e.ScheduledDate, e.WindowStart, e.WindowEnd, e.PerformedAt, string(e.Status), string(e.Source))
		if err != nil {
			return fmt.Errorf("failed to save %s entry: %w", e.Kind, err)
		}
	}

	if st != nil {
		if err := s.saveStats(ctx, tx, st); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit day: %w", err)
	}
	return nil
}

func (s *PgStore) FetchOrCreateStats(ctx context.Context) (*stats.Stats, error) {
	if _, err := s.db.Exec(ctx, `INSERT INTO user_stats (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, fmt.Errorf("failed to create stats: %w", err)
	}

	st := stats.New()
	var lastClosed *time.Time
	err := s.db.QueryRow(ctx, `
		SELECT current_streak, best_streak, freezes_available, total_prayers, badges_unlocked, last_closed_date, updated_at
		FROM user_stats WHERE id = 1
	`).Scan(&st.CurrentStreak, &st.BestStreak, &st.FreezesAvailable, &st.TotalPrayers, &st.BadgesUnlocked, &lastClosed, &st.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch stats: %w", err)
	}
	if lastClosed != nil {
		d := s.civilDate(*lastClosed)
		st.LastClosedDate = &d
	}
	if st.BadgesUnlocked == nil {
		st.BadgesUnlocked = []string{}
	}
	return st, nil
}

func (s *PgStore) saveStats(ctx context.Context, tx pgx.Tx, st *stats.Stats) error {
	var lastClosed *string
	if st.LastClosedDate != nil {
		d := utils.DateString(*st.LastClosedDate)
		lastClosed = &d
	}

	_, err := tx.Exec(ctx, `
		UPDATE user_stats SET
			current_streak = $1,
			best_streak = $2,
			freezes_available = $3,
			total_prayers = $4,
			badges_unlocked = $5,
			last_closed_date = $6::date,
			updated_at = NOW()
		WHERE id = 1
	`, st.CurrentStreak, st.BestStreak, st.FreezesAvailable, st.TotalPrayers, st.BadgesUnlocked, lastClosed)
	if err != nil {
		return fmt.Errorf("failed to save stats: %w", err)
	}
	return nil
}

func (s *PgStore) FetchOrCreateSettings(ctx context.Context) (*prayer.Settings, error) {
	if _, err := s.db.Exec(ctx, `INSERT INTO user_settings (id) VALUES (1) ON CONFLICT (id) DO NOTHING`); err != nil {
		return nil, fmt.Errorf("failed to create settings: %w", err)
	}

	var (
		settings       prayer.Settings
		method, madhab string
	)
	err := s.db.QueryRow(ctx, `
		SELECT calculation_method, madhab, latitude, longitude, city_name, notifications_enabled, updated_at
		FROM user_settings WHERE id = 1
	`).Scan(&method, &madhab, &settings.Latitude, &settings.Longitude, &settings.CityName, &settings.NotificationsEnabled, &settings.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch settings: %w", err)
	}
	settings.CalculationMethod = prayer.CalculationMethod(method)
	settings.Madhab = prayer.Madhab(madhab)
	return &settings, nil
}

func (s *PgStore) SaveSettings(ctx context.Context, settings *prayer.Settings) error {
	_, err := s.db.Exec(ctx, `
		UPDATE user_settings SET
			calculation_method = $1,
			madhab = $2,
			latitude = $3,
			longitude = $4,
			city_name = $5,
			notifications_enabled = $6,
			updated_at = NOW()
		WHERE id = 1
	`, string(settings.CalculationMethod), string(settings.Madhab), settings.Latitude, settings.Longitude, settings.CityName, settings.NotificationsEnabled)
	if err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

// civilDate re-anchors a DATE column, which pgx returns at UTC midnight,
// to midnight in the store's location.
func (s *PgStore) civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

// Reminders

func (s *PgStore) UpsertReminder(ctx context.Context, r *notification.Reminder) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO scheduled_reminders (identifier, prayer, day_date, fire_at, title, body, category, status)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, 'pending')
		ON CONFLICT (identifier) DO UPDATE SET
			fire_at = EXCLUDED.fire_at,
			title = EXCLUDED.title,
			body = EXCLUDED.body,
			category = EXCLUDED.category,
			status = 'pending',
			sent_at = NULL,
			failure_reason = NULL,
			retry_count = 0,
			updated_at = NOW()
	`, r.Identifier, string(r.Prayer), r.DayDate, r.FireAt, r.Title, r.Body, r.Category)
	if err != nil {
		return fmt.Errorf("failed to upsert reminder %s: %w", r.Identifier, err)
	}
	return nil
}

func (s *PgStore) DeleteReminders(ctx context.Context, identifiers []string) (int64, error) {
	if len(identifiers) == 0 {
		return 0, nil
	}
	tag, err := s.db.Exec(ctx, `DELETE FROM scheduled_reminders WHERE identifier = ANY($1)`, identifiers)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) DeletePendingReminders(ctx context.Context) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM scheduled_reminders WHERE status = 'pending'`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) PendingReminders(ctx context.Context) ([]*notification.Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT identifier, prayer, day_date, fire_at, title, body, category, status, sent_at, failure_reason, retry_count, created_at, updated_at
		FROM scheduled_reminders
		WHERE status = 'pending'
		ORDER BY fire_at
	`)
}

func (s *PgStore) DueReminders(ctx context.Context, now time.Time, limit int) ([]*notification.Reminder, error) {
	return s.queryReminders(ctx, `
		SELECT identifier, prayer, day_date, fire_at, title, body, category, status, sent_at, failure_reason, retry_count, created_at, updated_at
		FROM scheduled_reminders
		WHERE status = 'pending' AND fire_at <= $1
		ORDER BY fire_at
		LIMIT $2
	`, now, limit)
}

func (s *PgStore) queryReminders(ctx context.Context, query string, args ...any) ([]*notification.Reminder, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query reminders: %w", err)
	}
	defer rows.Close()

	var reminders []*notification.Reminder
	for rows.Next() {
		var (
			r            notification.Reminder
			kind, status string
			dayDate      time.Time
		)
		err := rows.Scan(&r.Identifier, &kind, &dayDate, &r.FireAt, &r.Title, &r.Body, &r.Category,
			&status, &r.SentAt, &r.FailureReason, &r.RetryCount, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reminder: %w", err)
		}
		r.Prayer = prayer.Kind(kind)
		r.Status = notification.ReminderStatus(status)
		r.DayDate = dayDate.Format(utils.DateLayout)
		reminders = append(reminders, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reminders: %w", err)
	}
	return reminders, nil
}

func (s *PgStore) MarkReminderSent(ctx context.Context, identifier string, at time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE scheduled_reminders SET status = 'sent', sent_at = $2, updated_at = NOW()
		WHERE identifier = $1
	`, identifier, at)
	if err != nil {
		return fmt.Errorf("failed to mark reminder %s as sent: %w", identifier, err)
	}
	return nil
}

// MarkReminderFailed records a failed delivery and returns the new retry
// count. A non-nil retryAt puts the reminder back in the queue.
func (s *PgStore) MarkReminderFailed(ctx context.Context, identifier, reason string, retryAt *time.Time) (int, error) {
	var retryCount int
	err := s.db.QueryRow(ctx, `
		UPDATE scheduled_reminders SET
			status = CASE WHEN $3::timestamptz IS NULL THEN 'failed' ELSE 'pending' END,
			fire_at = COALESCE($3::timestamptz, fire_at),
			failure_reason = $2,
			retry_count = retry_count + 1,
			updated_at = NOW()
		WHERE identifier = $1
		RETURNING retry_count
	`, identifier, reason, retryAt).Scan(&retryCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to mark reminder %s as failed: %w", identifier, err)
	}
	return retryCount, nil
}

func (s *PgStore) PurgeDeliveredBefore(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM scheduled_reminders
		WHERE status IN ('sent', 'failed') AND updated_at < $1
	`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge delivered reminders: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PgStore) AddDeviceToken(ctx context.Context, token notification.DeviceToken) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (token, platform) VALUES ($1, $2)
		ON CONFLICT (token) DO UPDATE SET platform = EXCLUDED.platform
	`, token.Token, token.Platform)
	if err != nil {
		return fmt.Errorf("failed to register device: %w", err)
	}
	return nil
}

func (s *PgStore) DeviceTokens(ctx context.Context) ([]notification.DeviceToken, error) {
	rows, err := s.db.Query(ctx, `SELECT token, platform, created_at FROM device_tokens ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch device tokens: %w", err)
	}
	defer rows.Close()

	var tokens []notification.DeviceToken
	for rows.Next() {
		var t notification.DeviceToken
		if err := rows.Scan(&t.Token, &t.Platform, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan device token: %w", err)
		}
		tokens = append(tokens, t)
	}
	return tokens, rows.Err()
}
