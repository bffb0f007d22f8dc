package prayer

import "time"

type Settings struct {
	CalculationMethod    CalculationMethod `json:"calculation_method" db:"calculation_method"`
	Madhab               Madhab            `json:"madhab" db:"madhab"`
	Latitude             *float64          `json:"latitude,omitempty" db:"latitude"`
	Longitude            *float64          `json:"longitude,omitempty" db:"longitude"`
	CityName             *string           `json:"city_name,omitempty" db:"city_name"`
	NotificationsEnabled bool              `json:"notifications_enabled" db:"notifications_enabled"`
	UpdatedAt            time.Time         `json:"updated_at" db:"updated_at"`
}

func DefaultSettings() *Settings {
	return &Settings{
		CalculationMethod:    MethodMuslimWorldLeague,
		Madhab:               MadhabShafi,
		NotificationsEnabled: true,
		UpdatedAt:            time.Now(),
	}
}

// Coordinates returns the configured location, if both parts are set.
func (s *Settings) Coordinates() (Coordinates, bool) {
	if s.Latitude == nil || s.Longitude == nil {
		return Coordinates{}, false
	}
	return Coordinates{Latitude: *s.Latitude, Longitude: *s.Longitude}, true
}
