package prayer

import (
	"strings"
	"time"
)

type Kind string

const (
	Fajr    Kind = "fajr"
	Dhuhr   Kind = "dhuhr"
	Asr     Kind = "asr"
	Maghrib Kind = "maghrib"
	Isha    Kind = "isha"
)

// Kinds lists the daily prayers in the order they occur.
var Kinds = []Kind{Fajr, Dhuhr, Asr, Maghrib, Isha}

func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrUnknownPrayer
	}
	return k, nil
}

func (k Kind) Valid() bool {
	return k.Index() >= 0
}

// Index is the position of k in the daily order, or -1.
func (k Kind) Index() int {
	for i, kind := range Kinds {
		if kind == k {
			return i
		}
	}
	return -1
}

func (k Kind) DisplayName() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:])
}

func (k Kind) Icon() string {
	switch k {
	case Fajr:
		return "sunrise"
	case Dhuhr:
		return "sun.max"
	case Asr:
		return "sun.and.horizon"
	case Maghrib:
		return "sunset"
	case Isha:
		return "moon.stars"
	}
	return ""
}

type CalculationMethod string

const (
	MethodMuslimWorldLeague   CalculationMethod = "muslimWorldLeague"
	MethodEgyptian            CalculationMethod = "egyptian"
	MethodUmMalaysia          CalculationMethod = "umMalaysia"
	MethodNorthAmerica        CalculationMethod = "northAmerica"
	MethodMuslimLeagueOfIndia CalculationMethod = "muslim_league_of_india"
)

var CalculationMethods = []CalculationMethod{
	MethodMuslimWorldLeague,
	MethodEgyptian,
	MethodUmMalaysia,
	MethodNorthAmerica,
	MethodMuslimLeagueOfIndia,
}

func (m CalculationMethod) DisplayName() string {
	switch m {
	case MethodMuslimWorldLeague:
		return "Muslim World League"
	case MethodEgyptian:
		return "Egyptian General Authority"
	case MethodUmMalaysia:
		return "UM Malaysia"
	case MethodNorthAmerica:
		return "North America (ISNA)"
	case MethodMuslimLeagueOfIndia:
		return "Muslim League of India"
	}
	return string(m)
}

type Madhab string

const (
	MadhabShafi  Madhab = "shafi"
	MadhabHanafi Madhab = "hanafi"
)

// ShadowFactor is the object-shadow multiple that marks the start of Asr.
func (m Madhab) ShadowFactor() int {
	if m == MadhabHanafi {
		return 2
	}
	return 1
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Window struct {
	Kind          Kind      `json:"prayer"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	ScheduledTime time.Time `json:"scheduled_time"`
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

type Status string

const (
	StatusPending Status = "pending"
	StatusDone    Status = "done"
	StatusMissed  Status = "missed"
	StatusQada    Status = "qada"
)

// Completed reports whether the status counts toward the day's completions.
func (s Status) Completed() bool {
	return s == StatusDone || s == StatusQada
}

type DisplayState string

const (
	StateFuture  DisplayState = "future"
	StateActive  DisplayState = "active"
	StateWarning DisplayState = "warning"
	StateMissed  DisplayState = "missed"
	StateDone    DisplayState = "done"
	StateQada    DisplayState = "qada"
)

type EntrySource string

const (
	SourceApp          EntrySource = "app"
	SourceNotification EntrySource = "notification"
)
