package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearSecretEnv(t *testing.T) {
	t.Helper()
	for _, key := range secretKeys {
		t.Setenv(key, "")
	}
}

func TestLoadSecrets_File(t *testing.T) {
	clearSecretEnv(t)
	path := filepath.Join(t.TempDir(), ".secrets.env")
	require.NoError(t, os.WriteFile(path, []byte(`# credentials
OPENWEATHER_API_KEY=abc123

LAT=40.7128
LON=-74.0060
TZ=America/New_York
`), 0600))

	s, err := LoadSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, Secrets{
		OpenWeatherAPIKey: "abc123",
		Lat:               "40.7128",
		Lon:               "-74.0060",
		TZ:                "America/New_York",
	}, s)
}

func TestLoadSecrets_EnvOverridesFile(t *testing.T) {
	clearSecretEnv(t)
	path := filepath.Join(t.TempDir(), ".secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("OPENWEATHER_API_KEY=fromfile\nLAT=1\n"), 0600))
	t.Setenv(KeyOpenWeatherAPIKey, "fromenv")

	s, err := LoadSecrets(path)
	require.NoError(t, err)
	assert.Equal(t, "fromenv", s.OpenWeatherAPIKey)
	assert.Equal(t, "1", s.Lat)
}

func TestLoadSecrets_MissingFile(t *testing.T) {
	clearSecretEnv(t)
	t.Setenv(KeyLat, "10")

	s, err := LoadSecrets(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, "10", s.Lat)
	assert.Empty(t, s.OpenWeatherAPIKey)
}
