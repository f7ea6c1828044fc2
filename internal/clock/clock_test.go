package clock

import (
	"errors"
	"testing"
	"time"

	"dynamic-sky/internal/astro"
	"dynamic-sky/internal/sky"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAt(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)
	now := time.Date(2024, 3, 10, 20, 0, 0, 0, loc)

	tests := []struct {
		in   string
		want time.Time
	}{
		{"2024-06-01T12:30:00", time.Date(2024, 6, 1, 12, 30, 0, 0, loc)},
		{"2024-06-01T12:30", time.Date(2024, 6, 1, 12, 30, 0, 0, loc)},
		{"2024-06-01", time.Date(2024, 6, 1, 0, 0, 0, 0, loc)},
		{"2024-06-01T06:30+02:00", time.Date(2024, 6, 1, 4, 30, 0, 0, time.UTC)},
		{"2024-06-01T06:30-05:00", time.Date(2024, 6, 1, 11, 30, 0, 0, time.UTC)},
		{"06:30", time.Date(2024, 3, 10, 6, 30, 0, 0, loc)},
		{"6:30:15", time.Date(2024, 3, 10, 6, 30, 15, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAt(tt.in, loc, now)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s want %s", got, tt.want)
		})
	}

	got, err := ParseAt("2024-06-01T12:30:00Z", loc, now)
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC).Equal(got))
}

func TestParseAt_Invalid(t *testing.T) {
	for _, in := range []string{"", "noon", "25:00", "12:61", "7"} {
		_, err := ParseAt(in, time.UTC, time.Now())
		assert.True(t, errors.Is(err, ErrInvalidAt), "input %q", in)
	}
}

func TestDemoWindow(t *testing.T) {
	a := astro.AstroData{
		Sunrise:     time.Date(2024, 6, 1, 6, 30, 0, 0, time.UTC),
		Sunset:      time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC),
		NextSunrise: time.Date(2024, 6, 2, 6, 31, 0, 0, time.UTC),
	}
	tw := 45 * time.Minute

	start, end := DemoWindow(sky.Dawn, a, tw)
	assert.Equal(t, a.Sunrise.Add(-tw), start)
	assert.Equal(t, a.Sunrise.Add(tw), end)

	start, end = DemoWindow(sky.Dusk, a, tw)
	assert.Equal(t, a.Sunset.Add(-tw), start)
	assert.Equal(t, a.Sunset.Add(tw), end)

	start, end = DemoWindow(sky.Day, a, tw)
	assert.Equal(t, a.Sunrise, start)
	assert.Equal(t, a.Sunset, end)

	start, end = DemoWindow(sky.Night, a, tw)
	assert.Equal(t, a.Sunset, start)
	assert.Equal(t, a.NextSunrise, end)
}

func TestDemo_Now(t *testing.T) {
	start := time.Date(2024, 6, 1, 6, 0, 0, 0, time.UTC)
	var elapsed time.Duration
	d := &Demo{
		Start:   start,
		End:     start.Add(2 * time.Hour),
		Period:  120 * time.Second,
		elapsed: func() time.Duration { return elapsed },
	}

	assert.Equal(t, start, d.Now())

	elapsed = 60 * time.Second
	assert.Equal(t, start.Add(time.Hour), d.Now())

	elapsed = 150 * time.Second
	assert.Equal(t, start.Add(30*time.Minute), d.Now())
}

func TestParseDemoMode(t *testing.T) {
	p, err := ParseDemoMode("dusk")
	require.NoError(t, err)
	assert.Equal(t, sky.Dusk, p)

	_, err = ParseDemoMode("noon")
	assert.ErrorIs(t, err, ErrInvalidDemoMode)
}

func TestSources(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, at, Fixed{At: at}.Now())

	loc := time.FixedZone("x", 3600)
	assert.Equal(t, loc, Real{Loc: loc}.Now().Location())
}
