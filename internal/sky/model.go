package sky

import (
	"math"
	"time"

	"dynamic-sky/internal/astro"
)

// Options tune phase windows and moon visibility.
type Options struct {
	TwilightMinutes   int
	MoonBandMin       float64
	MoonBandMax       float64
	ForceMoon         bool
	MoonPhaseOverride *float64
	Moonlit           bool
}

func DefaultOptions() Options {
	return Options{
		TwilightMinutes: 45,
		MoonBandMin:     0.05,
		MoonBandMax:     0.95,
	}
}

// Twilight returns the twilight window as a duration.
func (o Options) Twilight() time.Duration {
	if o.TwilightMinutes < 0 {
		return 0
	}
	return time.Duration(o.TwilightMinutes) * time.Minute
}

// State is one computed sky snapshot. Sun and Moon are the arch positions of
// the body whose arc is active, regardless of visibility.
type State struct {
	At            time.Time `json:"at"`
	Phase         Phase     `json:"phase"`
	Arc           Arc       `json:"arc"`
	Sun           *Point    `json:"sun,omitempty"`
	Moon          *Point    `json:"moon,omitempty"`
	SunVisible    bool      `json:"sun_visible"`
	MoonVisible   bool      `json:"moon_visible"`
	MoonPhase     *float64  `json:"moon_phase,omitempty"`
	SkyTint       Tint      `json:"sky_tint"`
	BuildingTint  Tint      `json:"building_tint"`
	TDay          *float64  `json:"t_day,omitempty"`
	TNight        *float64  `json:"t_night,omitempty"`
	MinutesToEdge float64   `json:"minutes_to_edge"`
}

// SpritePhase is the moon phase used to draw the sprite, 0.5 when unknown.
func (s State) SpritePhase() float64 {
	if s.MoonPhase == nil {
		return 0.5
	}
	return *s.MoonPhase
}

type Model struct {
	Geometry Geometry
	Options  Options
}

func NewModel(g Geometry, o Options) *Model {
	return &Model{Geometry: g, Options: o}
}

// MoonVisible applies the inclusion band to a known phase. ForceMoon wins.
func (o Options) MoonVisible(phase *float64) bool {
	if o.ForceMoon {
		return true
	}
	if phase == nil {
		return false
	}
	return *phase >= o.MoonBandMin && *phase <= o.MoonBandMax
}

func (m *Model) Compute(now time.Time, a astro.AstroData) State {
	st := State{
		At:            now,
		Phase:         ClassifyPhase(now, a.Sunrise, a.Sunset, m.Options.Twilight()),
		Arc:           ComputeProgress(now, a),
		MinutesToEdge: MinutesToEdge(now, a),
		MoonPhase:     a.MoonPhase,
	}
	if m.Options.MoonPhaseOverride != nil {
		v := *m.Options.MoonPhaseOverride
		st.MoonPhase = &v
	}

	t := st.Arc.T
	pos := m.Geometry.Position(t, m.Geometry.ArchHeight(st.Arc.Body))
	moonAlt := 0.0
	if st.Arc.Body == Sun {
		st.TDay = &t
		st.Sun = &pos
		st.SunVisible = true
	} else {
		st.TNight = &t
		st.Moon = &pos
		moonAlt = math.Max(0, math.Sin(math.Pi*t))
		st.MoonVisible = m.Options.MoonVisible(st.MoonPhase)
	}

	st.SkyTint, st.BuildingTint = ComputeTints(st.Phase, st.MinutesToEdge, moonAlt, m.Options.TwilightMinutes, m.Options.Moonlit)
	return st
}
