package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadIsolated(t *testing.T, path string) *Config {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	cfg, err := Load(path)
	require.NoError(t, err)
	return cfg
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadIsolated(t, "")

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"Provider", cfg.Astro.Provider, "openweather"},
		{"Timeout", cfg.Astro.Timeout, 10 * time.Second},
		{"CacheTTL", cfg.Astro.CacheTTL, 6 * time.Hour},
		{"SunSize", cfg.Sky.SunSize, 260},
		{"MoonSize", cfg.Sky.MoonSize, 180},
		{"TwilightMinutes", cfg.Sky.TwilightMinutes, 45},
		{"MoonBandMin", cfg.Sky.MoonBandMin, 0.05},
		{"MoonBandMax", cfg.Sky.MoonBandMax, 0.95},
		{"Interval", cfg.Loop.Interval, 120 * time.Second},
		{"Epsilon", cfg.Loop.Epsilon, 10},
		{"DemoEpsilon", cfg.Demo.Epsilon, 3},
		{"DemoTick", cfg.Demo.Tick, 500 * time.Millisecond},
		{"Binary", cfg.Layers.Binary, "hyprlax"},
		{"SunZ", cfg.Layers.SunZ, 5},
		{"CacheDir", cfg.Paths.CacheDir, filepath.Join(".", "assets", "cache")},
		{"SecretsFile", cfg.Paths.SecretsFile, filepath.Join(".", ".secrets.env")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
	assert.Nil(t, cfg.Sky.MoonPhaseOverride())
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sky.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
sky:
  twilight_minutes: 30
  moon_phase: 0.5
loop:
  interval: 90s
layers:
  z_between: ["3.png", "5.png"]
`), 0644))

	cfg := loadIsolated(t, path)
	assert.Equal(t, 30, cfg.Sky.TwilightMinutes)
	assert.Equal(t, 90*time.Second, cfg.Loop.Interval)
	assert.Equal(t, []string{"3.png", "5.png"}, cfg.Layers.ZBetween)
	require.NotNil(t, cfg.Sky.MoonPhaseOverride())
	assert.InDelta(t, 0.5, *cfg.Sky.MoonPhaseOverride(), 1e-9)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("DYNAMIC_SKY_SKY_SUN_SIZE", "300")
	cfg := loadIsolated(t, "")
	assert.Equal(t, 300, cfg.Sky.SunSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{}
	cfg.ApplySecrets(Secrets{OpenWeatherAPIKey: "k", Lat: "52.52", Lon: "bad", TZ: "Europe/Berlin"})

	assert.Equal(t, "k", cfg.Astro.APIKey)
	assert.InDelta(t, 52.52, cfg.Location.Latitude, 1e-9)
	assert.Zero(t, cfg.Location.Longitude)
	assert.True(t, cfg.Location.HasCoordinates())
	assert.Equal(t, "Europe/Berlin", cfg.Location.TimeLocation().String())
}

func TestTimeLocation_Fallback(t *testing.T) {
	assert.Equal(t, time.Local, LocationConfig{Timezone: "Not/AZone"}.TimeLocation())
	assert.Equal(t, time.Local, LocationConfig{}.TimeLocation())
}
