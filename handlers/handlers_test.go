package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salahStreakAPI/internal/astro"
	"salahStreakAPI/internal/notification"
	"salahStreakAPI/internal/prayer"
	"salahStreakAPI/internal/stats"
	"salahStreakAPI/internal/store"
	"salahStreakAPI/internal/widget"
	"salahStreakAPI/middleware"
	"salahStreakAPI/services"
)

// stubCalculator gives every day Fajr 05:00, Sunrise 06:30, Dhuhr 12:00,
// Asr 15:30, Maghrib 18:00 and Isha 19:30.
type stubCalculator struct{}

func (stubCalculator) Compute(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, asrFactor int) (astro.Times, error) {
	y, m, d := date.Date()
	at := func(h, min int) time.Time { return time.Date(y, m, d, h, min, 0, 0, date.Location()) }
	return astro.Times{
		Fajr: at(5, 0), Sunrise: at(6, 30), Dhuhr: at(12, 0),
		Asr: at(15, 30), Maghrib: at(18, 0), Isha: at(19, 30),
	}, nil
}

type apiEnv struct {
	t      *testing.T
	router *mux.Router
	set    *Set
	store  *store.MemoryStore
}

func newAPIEnv(t *testing.T, withCoords bool) *apiEnv {
	t.Helper()
	mem := store.NewMemoryStore(time.UTC)
	if withCoords {
		settings := prayer.DefaultSettings()
		lat, lng := 21.4225, 39.8262
		settings.Latitude, settings.Longitude = &lat, &lng
		require.NoError(t, mem.SaveSettings(context.Background(), settings))
	}

	dispatcher := services.NewNotificationDispatcher(mem, time.Minute)
	prayerService := services.NewPrayerService(
		mem,
		services.NewWindowService(stubCalculator{}),
		services.NewReminderScheduler(dispatcher),
		widget.MultiPublisher{},
		time.UTC,
	)

	set := &Set{
		Prayer:       NewPrayerHandler(prayerService),
		Stats:        NewStatsHandler(services.NewStatsService(mem, time.UTC)),
		Widget:       NewWidgetHandler(prayerService, nil),
		Notification: NewNotificationHandler(dispatcher, prayerService),
	}
	router := mux.NewRouter()
	set.Register(router.PathPrefix("/api/v1").Subrouter())

	return &apiEnv{t: t, router: router, set: set, store: mem}
}

func (e *apiEnv) setNow(day, hour, min int) {
	clock := func() time.Time { return time.Date(2026, time.October, day, hour, min, 0, 0, time.UTC) }
	e.set.Prayer.now = clock
	e.set.Stats.now = clock
	e.set.Widget.now = clock
	e.set.Notification.now = clock
}

func (e *apiEnv) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClerkIDKey, "user_owner"))
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestGetToday(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 4, 0)

	rec := env.do(http.MethodGet, "/api/v1/today", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[prayer.DayView](t, rec)
	assert.Equal(t, "2026-10-15", view.Date)
	require.Len(t, view.Prayers, 5)
	assert.Equal(t, prayer.StateFuture, view.Prayers[0].State)
	assert.Equal(t, "Fajr", view.Prayers[0].DisplayName)
}

func TestMarkDone_StatusCodes(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 13, 0)

	rec := env.do(http.MethodPost, "/api/v1/prayers/dhuhr/done", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[services.TransitionResult](t, rec)
	assert.Equal(t, prayer.StatusDone, result.Entry.Status)
	assert.Equal(t, 1, result.Stats.TotalPrayers)
	require.Len(t, result.NewBadges, 1)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/v1/prayers/dhuhr/done", nil).Code)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/v1/prayers/isha/done", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/prayers/tahajjud/done", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/prayers/asr/done?date=15-10-2026", nil).Code)

	rec = env.do(http.MethodPost, "/api/v1/prayers/dhuhr/undo-done", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prayer.StatusPending, decode[services.TransitionResult](t, rec).Entry.Status)
}

func TestQadaFlow(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 13, 0)

	rec := env.do(http.MethodPost, "/api/v1/prayers/fajr/qada", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, prayer.StatusQada, decode[services.TransitionResult](t, rec).Entry.Status)

	rec = env.do(http.MethodPost, "/api/v1/prayers/fajr/undo-qada", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prayer.StatusMissed, decode[services.TransitionResult](t, rec).Entry.Status)
}

func TestWithoutCoordinates(t *testing.T) {
	env := newAPIEnv(t, false)
	env.setNow(15, 13, 0)

	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodGet, "/api/v1/windows", nil).Code)
	assert.Equal(t, http.StatusUnprocessableEntity, env.do(http.MethodPost, "/api/v1/prayers/dhuhr/done", nil).Code)
}

func TestSettings(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 9, 0)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/v1/settings", map[string]interface{}{"madhab": "maliki"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPut, "/api/v1/settings", map[string]interface{}{"latitude": 120.0}).Code)

	rec := env.do(http.MethodPut, "/api/v1/settings", map[string]interface{}{"madhab": "hanafi", "city_name": "Mecca"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decode[prayer.Settings](t, rec)
	assert.Equal(t, prayer.MadhabHanafi, settings.Madhab)
	require.NotNil(t, settings.CityName)
	assert.Equal(t, "Mecca", *settings.CityName)

	rec = env.do(http.MethodGet, "/api/v1/windows?date=2026-10-16", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	windows := decode[prayer.WindowsResponse](t, rec)
	assert.Equal(t, "2026-10-16", windows.Date)
	assert.Len(t, windows.Windows, 5)
}

func TestCloseDay(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(14, 10, 0)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/today", nil).Code)

	env.setNow(15, 4, 0)
	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/v1/days/2026-10-14/close", nil).Code)

	env.setNow(15, 6, 0)
	rec := env.do(http.MethodPost, "/api/v1/days/2026-10-14/close", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode[struct {
		Closed []services.DayClosure `json:"closed"`
	}](t, rec)
	require.Len(t, body.Closed, 1)
	assert.Equal(t, services.OutcomeReset, body.Closed[0].Outcome)
	assert.Equal(t, 5, body.Closed[0].Finalized)

	assert.Equal(t, http.StatusConflict, env.do(http.MethodPost, "/api/v1/days/2026-10-14/close", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/days/yesterday/close", nil).Code)
}

func TestCloseDay_ReportsDaysClosedBeforeFailure(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(13, 10, 0)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/today", nil).Code)
	env.setNow(14, 10, 0)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/today", nil).Code)

	// Isha of the 14th runs until Fajr on the 15th.
	env.setNow(15, 4, 0)
	rec := env.do(http.MethodPost, "/api/v1/days/2026-10-14/close", nil)
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	body := decode[struct {
		Error  string                `json:"error"`
		Closed []services.DayClosure `json:"closed"`
	}](t, rec)
	assert.Equal(t, prayer.ErrDayStillOpen.Error(), body.Error)
	require.Len(t, body.Closed, 1)
	assert.Equal(t, "2026-10-13", body.Closed[0].Date)

	env.setNow(15, 6, 0)
	rec = env.do(http.MethodPost, "/api/v1/days/2026-10-14/close", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"2026-10-14"`)
}

func TestRecompute(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 12, 30)

	rec := env.do(http.MethodPost, "/api/v1/recompute", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[prayer.DayView](t, rec)
	assert.Equal(t, prayer.StateActive, view.Prayers[1].State)
}

func TestNotifications(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 4, 0)
	require.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/v1/today", nil).Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/notifications/register-device",
		map[string]string{"token": "abc", "platform": "symbian"}).Code)
	assert.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/notifications/register-device",
		map[string]string{"token": "abc", "platform": "ios"}).Code)

	tokens, err := env.store.DeviceTokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ios", tokens[0].Platform)

	rec := env.do(http.MethodGet, "/api/v1/notifications/pending", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pending := decode[notification.PendingRemindersResponse](t, rec)
	assert.Equal(t, 17, pending.Count)
	assert.Equal(t, "fajr_2026-10-15_0", pending.Reminders[0].Identifier)

	env.setNow(15, 5, 10)
	rec = env.do(http.MethodPost, "/api/v1/notifications/actions",
		notification.ActionRequest{Identifier: "fajr_2026-10-15_0", Action: notification.ActionSnooze})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "fajr_2026-10-15_snooze", decode[services.ActionResult](t, rec).Snoozed.Identifier)

	rec = env.do(http.MethodPost, "/api/v1/notifications/actions",
		notification.ActionRequest{Identifier: "fajr_2026-10-15_0", Action: notification.ActionMarkDone})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, prayer.SourceNotification, decode[services.ActionResult](t, rec).Transition.Entry.Source)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/notifications/actions",
		notification.ActionRequest{Identifier: "fajr_2026-10-15_0", Action: "DISMISS"}).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodPost, "/api/v1/notifications/actions",
		notification.ActionRequest{Identifier: "fajr-2026-10-15", Action: notification.ActionMarkDone}).Code)
}

func TestStatsEndpoints(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 13, 0)
	require.Equal(t, http.StatusOK, env.do(http.MethodPost, "/api/v1/prayers/dhuhr/done", nil).Code)

	rec := env.do(http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[stats.Summary](t, rec).TotalPrayers)

	rec = env.do(http.MethodGet, "/api/v1/stats/weekly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grid := decode[stats.WeeklyGrid](t, rec)
	require.Len(t, grid.Days, 7)
	assert.Equal(t, stats.CellDone, grid.Days[6].Cells[1])
	assert.Equal(t, stats.CellUpcoming, grid.Days[6].Cells[4])

	rec = env.do(http.MethodGet, "/api/v1/stats/breakdown", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	breakdown := decode[struct {
		Prayers []stats.PrayerBreakdown `json:"prayers"`
	}](t, rec)
	assert.Equal(t, stats.PrayerBreakdown{Prayer: "dhuhr", Count: 1}, breakdown.Prayers[1])

	rec = env.do(http.MethodGet, "/api/v1/badges", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":"first_prayer"`)
}

func TestWidget(t *testing.T) {
	env := newAPIEnv(t, true)
	env.setNow(15, 16, 0)

	rec := env.do(http.MethodPost, "/api/v1/widget/prayers/asr/done", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap, err := widget.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CompletedCount())

	rec = env.do(http.MethodGet, "/api/v1/widget", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap, err = widget.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	current, ok := snap.CurrentPrayer(time.Date(2026, time.October, 15, 16, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, "maghrib", current.Prayer)
}

type brokenStatsRepo struct {
	*store.MemoryStore
}

func (brokenStatsRepo) FetchOrCreateStats(ctx context.Context) (*stats.Stats, error) {
	return nil, errors.New("connection refused")
}

type publishedSnapshot struct {
	snap widget.Snapshot
	err  error
}

func (p publishedSnapshot) Latest(ctx context.Context) (widget.Snapshot, error) {
	return p.snap, p.err
}

func TestWidget_FallsBackToPublishedSnapshot(t *testing.T) {
	repo := brokenStatsRepo{store.NewMemoryStore(time.UTC)}
	prayerService := services.NewPrayerService(
		repo,
		services.NewWindowService(stubCalculator{}),
		services.NewReminderScheduler(services.NewNotificationDispatcher(repo.MemoryStore, time.Minute)),
		nil,
		time.UTC,
	)
	published := widget.Snapshot{
		Prayers:       []widget.Entry{},
		CurrentStreak: 4,
		UpdatedAt:     time.Date(2026, time.October, 15, 11, 0, 0, 0, time.UTC),
	}

	rec := httptest.NewRecorder()
	NewWidgetHandler(prayerService, publishedSnapshot{snap: published}).
		GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	snap, err := widget.Decode(rec.Body.Bytes())
	require.NoError(t, err)
	assert.True(t, published.Equal(snap))

	rec = httptest.NewRecorder()
	NewWidgetHandler(prayerService, publishedSnapshot{err: widget.ErrNoSnapshot}).
		GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = httptest.NewRecorder()
	NewWidgetHandler(prayerService, nil).
		GetSnapshot(rec, httptest.NewRequest(http.MethodGet, "/api/v1/widget", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
