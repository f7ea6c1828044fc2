package clock

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/sky"

	"cloudeng.io/datetime"
)

var (
	ErrInvalidAt       = errors.New("invalid --at value")
	ErrInvalidDemoMode = errors.New("invalid demo mode")
)

// Source yields the simulated "now" for a tick.
type Source interface {
	Now() time.Time
}

type Real struct {
	Loc *time.Location
}

func (r Real) Now() time.Time {
	if r.Loc == nil {
		return time.Now()
	}
	return time.Now().In(r.Loc)
}

type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time { return f.At }

// Demo replays [Start, End] once every Period of wall time.
type Demo struct {
	Start  time.Time
	End    time.Time
	Period time.Duration

	elapsed func() time.Duration
}

// NewDemo starts the demo clock at the current monotonic instant.
func NewDemo(start, end time.Time, period time.Duration) *Demo {
	t0 := time.Now()
	return &Demo{
		Start:   start,
		End:     end,
		Period:  period,
		elapsed: func() time.Duration { return time.Since(t0) },
	}
}

func (d *Demo) Now() time.Time {
	period := d.Period
	if period < time.Second {
		period = time.Second
	}
	window := d.End.Sub(d.Start)
	if window < time.Second {
		window = time.Second
	}

	frac := math.Mod(float64(d.elapsed())/float64(period), 1)
	return d.Start.Add(time.Duration(frac * float64(window)))
}

// ParseDemoMode accepts dawn, dusk, day or night.
func ParseDemoMode(s string) (sky.Phase, error) {
	p, err := sky.ParsePhase(s)
	if err != nil {
		return sky.Night, fmt.Errorf("%w: %q (want dawn, dusk, day or night)", ErrInvalidDemoMode, s)
	}
	return p, nil
}

// DemoWindow is the simulated span a demo of the given phase loops over.
func DemoWindow(mode sky.Phase, a astro.AstroData, twilight time.Duration) (start, end time.Time) {
	switch mode {
	case sky.Dawn:
		return a.Sunrise.Add(-twilight), a.Sunrise.Add(twilight)
	case sky.Dusk:
		return a.Sunset.Add(-twilight), a.Sunset.Add(twilight)
	case sky.Day:
		return a.Sunrise, a.Sunset
	default:
		return a.Sunset, a.NextSunrise
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseAt reads an ISO-8601 timestamp, or HH:MM[:SS] applied to now's date.
// Timestamps without an offset are taken in loc.
func ParseAt(s string, loc *time.Location, now time.Time) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	s = strings.TrimSpace(s)

	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	if strings.Contains(s, ":") {
		var tod datetime.TimeOfDay
		if err := tod.Parse(s); err == nil {
			base := now.In(loc)
			y, m, d := base.Date()
			return time.Date(y, m, d, tod.Hour(), tod.Minute(), tod.Second(), 0, loc), nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidAt, s)
}
