// Package astro computes daily prayer times from the sun's position.
//
// The model is the classic low-precision solar ephemeris: declination and
// equation of time from the Julian day, hour angles for the twilight and
// shadow-length conditions, one refinement pass, and a middle-of-the-night
// bound for fajr and isha where twilight never reaches the required depth.
package astro

import (
	"fmt"
	"math"
	"time"

	"salahStreakAPI/internal/prayer"
)

// riseSetAngle is the sun's depression at sunrise and sunset, accounting
// for refraction and the solar radius.
const riseSetAngle = 0.833

type Params struct {
	FajrAngle float64
	IshaAngle float64
}

var methodParams = map[prayer.CalculationMethod]Params{
	prayer.MethodMuslimWorldLeague:   {FajrAngle: 18, IshaAngle: 17},
	prayer.MethodEgyptian:            {FajrAngle: 19.5, IshaAngle: 17.5},
	prayer.MethodUmMalaysia:          {FajrAngle: 20, IshaAngle: 18},
	prayer.MethodNorthAmerica:        {FajrAngle: 15, IshaAngle: 15},
	prayer.MethodMuslimLeagueOfIndia: {FajrAngle: 18, IshaAngle: 18},
}

func ParamsFor(m prayer.CalculationMethod) (Params, bool) {
	p, ok := methodParams[m]
	return p, ok
}

type Times struct {
	Fajr    time.Time `json:"fajr"`
	Sunrise time.Time `json:"sunrise"`
	Dhuhr   time.Time `json:"dhuhr"`
	Asr     time.Time `json:"asr"`
	Maghrib time.Time `json:"maghrib"`
	Isha    time.Time `json:"isha"`
}

type SolarCalculator struct{}

func NewSolarCalculator() SolarCalculator {
	return SolarCalculator{}
}

// Compute returns the prayer times of the civil date of date, expressed in
// date's location. It fails with prayer.ErrCalculationUnavailable when the
// sun does not rise or set, or reach the asr shadow length, on that day.
func (SolarCalculator) Compute(date time.Time, coords prayer.Coordinates, method prayer.CalculationMethod, asrFactor int) (Times, error) {
	params, ok := ParamsFor(method)
	if !ok {
		return Times{}, fmt.Errorf("unknown calculation method %q: %w", method, prayer.ErrCalculationUnavailable)
	}
	if asrFactor < 1 {
		return Times{}, fmt.Errorf("invalid asr shadow factor %d: %w", asrFactor, prayer.ErrCalculationUnavailable)
	}

	y, m, d := date.Date()
	s := solar{
		jd:  julian(y, int(m), d) - coords.Longitude/(15*24),
		lat: coords.Latitude,
	}

	// hours of fajr, sunrise, dhuhr, asr, sunset, isha
	est := [6]float64{5, 6, 12, 13, 18, 18}
	var t [6]float64
	for pass := 0; pass < 2; pass++ {
		t = [6]float64{
			s.sunAngleTime(params.FajrAngle, est[0]/24, true),
			s.sunAngleTime(riseSetAngle, est[1]/24, true),
			s.midDay(est[2] / 24),
			s.asrTime(float64(asrFactor), est[3]/24),
			s.sunAngleTime(riseSetAngle, est[4]/24, false),
			s.sunAngleTime(params.IshaAngle, est[5]/24, false),
		}
		for i, v := range t {
			if !math.IsNaN(v) {
				est[i] = v
			}
		}
	}

	sunrise, dhuhr, asr, sunset := t[1], t[2], t[3], t[4]
	if math.IsNaN(sunrise) || math.IsNaN(dhuhr) || math.IsNaN(asr) || math.IsNaN(sunset) {
		return Times{}, prayer.ErrCalculationUnavailable
	}

	fajr, isha := t[0], t[5]
	portion := timeDiff(sunset, sunrise) / 2
	if math.IsNaN(fajr) || timeDiff(fajr, sunrise) > portion {
		fajr = sunrise - portion
	}
	if math.IsNaN(isha) || timeDiff(sunset, isha) > portion {
		isha = sunset + portion
	}

	base := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	offset := coords.Longitude / 15
	at := func(hours float64) time.Time {
		utc := hours - offset
		return base.Add(time.Duration(utc * float64(time.Hour))).Round(time.Minute).In(date.Location())
	}

	return Times{
		Fajr:    at(fajr),
		Sunrise: at(sunrise),
		Dhuhr:   at(dhuhr),
		Asr:     at(asr),
		Maghrib: at(sunset),
		Isha:    at(isha),
	}, nil
}

type solar struct {
	jd  float64
	lat float64
}

// position returns the sun's declination in degrees and the equation of
// time in hours.
func (s solar) position(jd float64) (decl, eqt float64) {
	d := jd - 2451545.0
	g := fixAngle(357.529 + 0.98560028*d)
	q := fixAngle(280.459 + 0.98564736*d)
	l := fixAngle(q + 1.915*dsin(g) + 0.020*dsin(2*g))
	e := 23.439 - 0.00000036*d

	ra := darctan2(dcos(e)*dsin(l), dcos(l)) / 15
	eqt = q/15 - fixHour(ra)
	decl = darcsin(dsin(e) * dsin(l))
	return decl, eqt
}

func (s solar) midDay(portion float64) float64 {
	_, eqt := s.position(s.jd + portion)
	return fixHour(12 - eqt)
}

func (s solar) sunAngleTime(angle, portion float64, beforeNoon bool) float64 {
	decl, _ := s.position(s.jd + portion)
	noon := s.midDay(portion)

	x := (-dsin(angle) - dsin(decl)*dsin(s.lat)) / (dcos(decl) * dcos(s.lat))
	if x < -1 || x > 1 {
		return math.NaN()
	}
	v := darccos(x) / 15
	if beforeNoon {
		return noon - v
	}
	return noon + v
}

func (s solar) asrTime(factor, portion float64) float64 {
	decl, _ := s.position(s.jd + portion)
	angle := -darccot(factor + dtan(math.Abs(s.lat-decl)))
	return s.sunAngleTime(angle, portion, false)
}

func julian(year, month, day int) float64 {
	if month <= 2 {
		year--
		month += 12
	}
	a := math.Floor(float64(year) / 100)
	b := 2 - a + math.Floor(a/4)
	return math.Floor(365.25*float64(year+4716)) + math.Floor(30.6001*float64(month+1)) + float64(day) + b - 1524.5
}

func timeDiff(from, to float64) float64 {
	return fixHour(to - from)
}

func dsin(d float64) float64 { return math.Sin(d * math.Pi / 180) }
func dcos(d float64) float64 { return math.Cos(d * math.Pi / 180) }
func dtan(d float64) float64 { return math.Tan(d * math.Pi / 180) }
func darcsin(x float64) float64 { return math.Asin(x) * 180 / math.Pi }
func darccos(x float64) float64 { return math.Acos(x) * 180 / math.Pi }
func darccot(x float64) float64 { return math.Atan(1/x) * 180 / math.Pi }

func darctan2(y, x float64) float64 { return math.Atan2(y, x) * 180 / math.Pi }

func fixAngle(a float64) float64 { return fix(a, 360) }
func fixHour(a float64) float64 { return fix(a, 24) }

func fix(a, b float64) float64 {
	a = a - b*math.Floor(a/b)
	if a < 0 {
		return a + b
	}
	return a
}
