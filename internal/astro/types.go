package astro

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoDailyEntries means a forecast carried no usable sunrise/sunset pair.
	ErrNoDailyEntries     = errors.New("astro: no daily entries")
	ErrMissingCredentials = errors.New("astro: api key and coordinates are required")
	ErrNoSunEvents        = errors.New("astro: sun does not rise or set on this date")
)

// Provider supplies the daily forecast document for the configured location.
type Provider interface {
	Name() string
	Forecast(ctx context.Context) (*Forecast, error)
}

// Forecast mirrors the One Call "daily" array. Element 0 is today.
type Forecast struct {
	Daily []DailyEntry `json:"daily"`
}

// DailyEntry holds epoch seconds (UTC). MoonPhase runs 0 (new) .. 0.5 (full) .. 1 (new).
type DailyEntry struct {
	Sunrise   int64    `json:"sunrise"`
	Sunset    int64    `json:"sunset"`
	MoonPhase *float64 `json:"moon_phase"`
}

// AstroData is the per-day input of the trajectory model, expressed in the
// configured location.
type AstroData struct {
	Sunrise     time.Time `json:"sunrise"`
	Sunset      time.Time `json:"sunset"`
	NextSunrise time.Time `json:"next_sunrise"`
	MoonPhase   *float64  `json:"moon_phase"`
}

// Extract converts a forecast into AstroData. The next sunrise comes from
// element 1 when present, otherwise today's sunrise plus 24h.
func Extract(f *Forecast, loc *time.Location) (AstroData, error) {
	if f == nil || len(f.Daily) == 0 {
		return AstroData{}, ErrNoDailyEntries
	}
	if loc == nil {
		loc = time.Local
	}

	today := f.Daily[0]
	data := AstroData{
		Sunrise:   time.Unix(today.Sunrise, 0).In(loc),
		Sunset:    time.Unix(today.Sunset, 0).In(loc),
		MoonPhase: today.MoonPhase,
	}
	if len(f.Daily) > 1 {
		data.NextSunrise = time.Unix(f.Daily[1].Sunrise, 0).In(loc)
	} else {
		data.NextSunrise = data.Sunrise.Add(24 * time.Hour)
	}
	return data, nil
}

// fallbackForecast is the deterministic offline day: 06:30 sunrise, 18:30
// sunset on now's local date, moon phase unknown.
func fallbackForecast(now time.Time) *Forecast {
	y, m, d := now.Date()
	sr := time.Date(y, m, d, 6, 30, 0, 0, now.Location())
	ss := time.Date(y, m, d, 18, 30, 0, 0, now.Location())
	return &Forecast{Daily: []DailyEntry{{Sunrise: sr.Unix(), Sunset: ss.Unix()}}}
}
