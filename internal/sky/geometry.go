package sky

import (
	"math"
)

const (
	DefaultHorizonFrac = 0.62
	DefaultApexFrac    = 0.18
	DefaultMargin      = 80
)

// Point is a pixel position on the monitor, origin top-left.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Distance is the Chebyshev distance between two points.
func (p Point) Distance(o Point) int {
	dx, dy := p.X-o.X, p.Y-o.Y
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// Geometry describes the monitor and the arch both bodies travel along.
// A non-positive ArcHeightDay/ArcHeightNight derives the height from
// HorizonFrac and ApexFrac.
type Geometry struct {
	Width          int
	Height         int
	MarginLeft     int
	MarginRight    int
	HorizonFrac    float64
	ApexFrac       float64
	MinTopMargin   int
	ArcHeightDay   float64
	ArcHeightNight float64
}

func (g Geometry) HorizonY() float64 {
	frac := g.HorizonFrac
	if frac <= 0 {
		frac = DefaultHorizonFrac
	}
	return float64(g.Height) * frac
}

func (g Geometry) ArchHeight(b Body) float64 {
	explicit := g.ArcHeightDay
	if b == Moon {
		explicit = g.ArcHeightNight
	}
	if explicit > 0 {
		return explicit
	}

	apexFrac := g.ApexFrac
	if apexFrac <= 0 {
		apexFrac = DefaultApexFrac
	}
	apex := math.Max(float64(g.Height)*apexFrac, float64(g.MinTopMargin))
	return math.Max(0, g.HorizonY()-apex)
}

// Position places t on the arch: x runs linearly between the margins, y
// follows horizon - height*sin(pi*t) with the apex at t=0.5.
func (g Geometry) Position(t, archHeight float64) Point {
	t = clamp(t, 0, 1)
	left := float64(g.MarginLeft)
	span := float64(g.Width - g.MarginLeft - g.MarginRight)
	x := left + span*t
	y := g.HorizonY() - archHeight*math.Sin(math.Pi*t)
	return Point{X: int(math.Round(x)), Y: int(math.Round(y))}
}
