package render

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// MoonBuckets is the number of cached moon phase sprites.
const MoonBuckets = 30

type ring struct {
	frac float64
	c    color.NRGBA
}

// Outer glow to inner core. Inner rings replace outer ones.
var sunRings = []ring{
	{1.0, color.NRGBA{255, 179, 0, 40}},
	{0.85, color.NRGBA{255, 179, 0, 60}},
	{0.7, color.NRGBA{255, 179, 0, 80}},
	{0.64, color.NRGBA{255, 235, 59, 230}},
}

var moonColor = color.NRGBA{245, 245, 245, 255}

// MoonBucket maps a phase in [0,1] to a sprite bucket.
func MoonBucket(phase float64) int {
	b := int(math.Round(phase * (MoonBuckets - 1)))
	if b < 0 {
		return 0
	}
	if b > MoonBuckets-1 {
		return MoonBuckets - 1
	}
	return b
}

// DrawSun renders a soft glowing disc.
func DrawSun(diameter int) *image.NRGBA {
	img := imaging.New(diameter, diameter, color.NRGBA{})
	c := float64(diameter) / 2
	for y := 0; y < diameter; y++ {
		for x := 0; x < diameter; x++ {
			d := math.Hypot(float64(x)+0.5-c, float64(y)+0.5-c)
			for i := len(sunRings) - 1; i >= 0; i-- {
				if d <= float64(diameter)*sunRings[i].frac/2 {
					img.SetNRGBA(x, y, sunRings[i].c)
					break
				}
			}
		}
	}
	return imaging.Blur(img, float64(diameter)*0.04)
}

// DrawMoon renders the lit part of the disc for phase (0 new, 0.5 full).
// The terminator is the ellipse x = cos(2*pi*phase)*sqrt(1-y^2); the right
// side is lit while waxing, the left while waning.
func DrawMoon(diameter int, phase float64) *image.NRGBA {
	img := imaging.New(diameter, diameter, color.NRGBA{})
	r := float64(diameter) / 2
	k := math.Cos(phase * 2 * math.Pi)
	waxing := phase <= 0.5
	for y := 0; y < diameter; y++ {
		v := (float64(y) + 0.5 - r) / r
		for x := 0; x < diameter; x++ {
			u := (float64(x) + 0.5 - r) / r
			if u*u+v*v > 1 {
				continue
			}
			edge := k * math.Sqrt(1-v*v)
			lit := u > edge
			if !waxing {
				lit = u < -edge
			}
			if lit {
				img.SetNRGBA(x, y, moonColor)
			}
		}
	}
	return imaging.Blur(img, math.Max(1, math.Floor(float64(diameter)*0.01)))
}
