package sky

import (
	"fmt"
	"math"
)

// Tint is the compositor tint argument: "none" or "#rrggbb:s.ss".
type Tint string

const NoTint Tint = "none"

const (
	dawnSkyColor      = "#ffb566"
	dawnBuildingColor = "#ffd39e"
	nightSkyColor     = "#7aa5ff"
	nightBldColor     = "#6b87c8"

	dawnSkyStrength      = 0.35
	dawnBuildingStrength = 0.25
	nightSkyStrength     = 0.12
	nightBldStrength     = 0.18
	moonlitBoost         = 0.10
	moonlitMax           = 0.35
)

// NewTint formats a color with a strength clamped to [0,1].
func NewTint(hex string, strength float64) Tint {
	return Tint(fmt.Sprintf("%s:%.2f", hex, clamp(strength, 0, 1)))
}

func (t Tint) String() string { return string(t) }

func smoothstep(x float64) float64 {
	x = clamp(x, 0, 1)
	return x * x * (3 - 2*x)
}

// ComputeTints returns the sky and building tints. During twilight the warm
// tint peaks at the edge timestamp and fades to zero at the window boundary.
// With moonlit set the night building tint brightens with moon altitude.
func ComputeTints(phase Phase, minutesToEdge, moonAltFrac float64, twilightMinutes int, moonlit bool) (sky, building Tint) {
	switch phase {
	case Day:
		return NoTint, NoTint
	case Dawn, Dusk:
		tw := math.Max(1, float64(twilightMinutes))
		k := smoothstep(1 - clamp(math.Abs(minutesToEdge), 0, tw)/tw)
		return NewTint(dawnSkyColor, dawnSkyStrength*k), NewTint(dawnBuildingColor, dawnBuildingStrength*k)
	}

	bld := nightBldStrength
	if moonlit {
		bld = clamp(nightBldStrength+moonlitBoost*moonAltFrac, 0, moonlitMax)
	}
	return NewTint(nightSkyColor, nightSkyStrength), NewTint(nightBldColor, bld)
}
