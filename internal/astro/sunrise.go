package astro

import (
	"context"
	"math"
	"time"

	"github.com/mooncaker816/learnmeeus/v3/julian"
	"github.com/nathan-osman/go-sunrise"
)

const (
	synodicMonth = 29.530588853
	// Julian day of the new moon of 2000-01-06 18:14 UTC.
	referenceNewMoonJD = 2451550.26
)

// SunriseCalculator is an offline Provider computing today's and tomorrow's
// sun events from coordinates, and the moon phase from the mean lunation.
type SunriseCalculator struct {
	Latitude  float64
	Longitude float64
	Location  *time.Location
	// Now defaults to time.Now.
	Now func() time.Time
}

func (c *SunriseCalculator) Name() string { return "offline" }

func (c *SunriseCalculator) Forecast(ctx context.Context) (*Forecast, error) {
	if c.Latitude == 0 && c.Longitude == 0 {
		return nil, ErrMissingCredentials
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	today := now().In(loc)
	tomorrow := today.AddDate(0, 0, 1)

	var out Forecast
	for _, day := range []time.Time{today, tomorrow} {
		rise, set := sunrise.SunriseSunset(c.Latitude, c.Longitude, day.Year(), day.Month(), day.Day())
		if rise.IsZero() || set.IsZero() {
			return nil, ErrNoSunEvents
		}
		noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, loc)
		phase := MoonPhaseAt(noon)
		out.Daily = append(out.Daily, DailyEntry{
			Sunrise:   rise.Unix(),
			Sunset:    set.Unix(),
			MoonPhase: &phase,
		})
	}
	return &out, nil
}

// MoonPhaseAt returns the lunation fraction at t: 0 new, 0.5 full.
func MoonPhaseAt(t time.Time) float64 {
	jd := julian.TimeToJD(t.UTC())
	age := math.Mod(jd-referenceNewMoonJD, synodicMonth)
	if age < 0 {
		age += synodicMonth
	}
	return age / synodicMonth
}
