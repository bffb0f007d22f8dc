package prayer

import "time"

type UpdateSettingsRequest struct {
	CalculationMethod    *CalculationMethod `json:"calculation_method,omitempty" validate:"omitempty,oneof=muslimWorldLeague egyptian umMalaysia northAmerica muslim_league_of_india"`
	Madhab               *Madhab            `json:"madhab,omitempty" validate:"omitempty,oneof=shafi hanafi"`
	Latitude             *float64           `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude            *float64           `json:"longitude,omitempty" validate:"omitempty,longitude"`
	CityName             *string            `json:"city_name,omitempty" validate:"omitempty,max=120"`
	NotificationsEnabled *bool              `json:"notifications_enabled,omitempty"`
}

type PrayerCard struct {
	Prayer        Kind         `json:"prayer"`
	DisplayName   string       `json:"display_name"`
	Icon          string       `json:"icon"`
	Status        Status       `json:"status"`
	State         DisplayState `json:"state"`
	ScheduledTime time.Time    `json:"scheduled_time"`
	WindowStart   time.Time    `json:"window_start"`
	WindowEnd     time.Time    `json:"window_end"`
	PerformedAt   *time.Time   `json:"performed_at,omitempty"`
	Source        EntrySource  `json:"source"`
}

type DayView struct {
	Date             string       `json:"date"`
	State            DayState     `json:"state"`
	Prayers          []PrayerCard `json:"prayers"`
	CompletedCount   int          `json:"completed_count"`
	StreakProtected  bool         `json:"streak_protected"`
	CurrentStreak    int          `json:"current_streak"`
	BestStreak       int          `json:"best_streak"`
	FreezesAvailable int          `json:"freezes_available"`
	AsOf             time.Time    `json:"as_of"`
}

type WindowsResponse struct {
	Date    string   `json:"date"`
	Method  string   `json:"method"`
	Madhab  Madhab   `json:"madhab"`
	Windows []Window `json:"windows"`
}
