package sky

import (
	"fmt"
	"strings"
	"time"
)

// Phase partitions the solar day.
type Phase int

const (
	Night Phase = iota
	Dawn
	Day
	Dusk
)

var phaseNames = [...]string{"night", "dawn", "day", "dusk"}

func (p Phase) String() string {
	if p < Night || p > Dusk {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	v, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// IsTwilight reports dawn or dusk.
func (p Phase) IsTwilight() bool {
	return p == Dawn || p == Dusk
}

func ParsePhase(s string) (Phase, error) {
	for i, name := range phaseNames {
		if strings.EqualFold(s, name) {
			return Phase(i), nil
		}
	}
	return Night, fmt.Errorf("unknown phase %q", s)
}

// ClassifyPhase maps now onto night, dawn, day or dusk. Windows are half-open;
// dawn is tested before dusk so overlapping windows on very short days still
// yield exactly one phase.
func ClassifyPhase(now, sunrise, sunset time.Time, twilight time.Duration) Phase {
	if twilight < 0 {
		twilight = 0
	}
	dawnStart, dawnEnd := sunrise.Add(-twilight), sunrise.Add(twilight)
	duskStart, duskEnd := sunset.Add(-twilight), sunset.Add(twilight)

	switch {
	case now.Before(dawnStart) || !now.Before(duskEnd):
		return Night
	case now.Before(dawnEnd):
		return Dawn
	case !now.Before(duskStart):
		return Dusk
	default:
		return Day
	}
}
