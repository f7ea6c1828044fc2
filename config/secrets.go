package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// Secret keys read from the secrets file. The same names are honored as
// environment variables and take precedence over the file.
const (
	KeyOpenWeatherAPIKey = "OPENWEATHER_API_KEY"
	KeyLat               = "LAT"
	KeyLon               = "LON"
	KeyTZ                = "TZ"
)

var secretKeys = []string{KeyOpenWeatherAPIKey, KeyLat, KeyLon, KeyTZ}

type Secrets struct {
	OpenWeatherAPIKey string
	Lat               string
	Lon               string
	TZ                string
}

// LoadSecrets reads a KEY=VALUE file (comments and blank lines ignored) and
// applies environment overrides. A missing file is not an error.
func LoadSecrets(path string) (Secrets, error) {
	v := viper.New()
	v.SetConfigType("env")

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := v.ReadConfig(f); err != nil {
				return Secrets{}, fmt.Errorf("secrets parse failed (%s): %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Secrets{}, fmt.Errorf("secrets load failed (%s): %w", path, err)
		}
	}

	for _, key := range secretKeys {
		if err := v.BindEnv(key); err != nil {
			return Secrets{}, err
		}
	}

	return Secrets{
		OpenWeatherAPIKey: v.GetString(KeyOpenWeatherAPIKey),
		Lat:               v.GetString(KeyLat),
		Lon:               v.GetString(KeyLon),
		TZ:                v.GetString(KeyTZ),
	}, nil
}
