package sky

import (
	"math"
	"time"

	"dynamic-sky/internal/astro"
)

// Body is the celestial body an arc belongs to.
type Body int

const (
	Sun Body = iota
	Moon
)

func (b Body) String() string {
	if b == Sun {
		return "sun"
	}
	return "moon"
}

func (b Body) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// Arc is the progress of the body currently crossing the sky. T is in [0,1]
// over [Start, End].
type Arc struct {
	Body  Body      `json:"body"`
	T     float64   `json:"t"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ComputeProgress returns the sun arc between sunrise and sunset (inclusive),
// otherwise the moon arc over the surrounding night. Before sunrise the night
// is assumed to have started at sunset minus 24h.
func ComputeProgress(now time.Time, a astro.AstroData) Arc {
	if !now.Before(a.Sunrise) && !now.After(a.Sunset) {
		return Arc{Body: Sun, T: fraction(now, a.Sunrise, a.Sunset), Start: a.Sunrise, End: a.Sunset}
	}
	if !now.Before(a.Sunset) {
		return Arc{Body: Moon, T: fraction(now, a.Sunset, a.NextSunrise), Start: a.Sunset, End: a.NextSunrise}
	}
	start := a.Sunset.Add(-24 * time.Hour)
	return Arc{Body: Moon, T: fraction(now, start, a.Sunrise), Start: start, End: a.Sunrise}
}

func fraction(now, start, end time.Time) float64 {
	span := end.Sub(start)
	if span <= 0 {
		return 0
	}
	return float64(now.Sub(start)) / float64(span)
}

// MinutesToEdge is the distance in minutes to the closest of sunrise, sunset
// and next sunrise.
func MinutesToEdge(now time.Time, a astro.AstroData) float64 {
	best := math.Inf(1)
	for _, edge := range []time.Time{a.Sunrise, a.Sunset, a.NextSunrise} {
		if edge.IsZero() {
			continue
		}
		m := math.Abs(now.Sub(edge).Minutes())
		if m < best {
			best = m
		}
	}
	return best
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
