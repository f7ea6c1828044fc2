package astro

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const openMeteoForecastURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoClient needs no API key. Open-Meteo reports no moon phase, so the
// mean-lunation estimate is attached to each day.
type OpenMeteoClient struct {
	latitude  float64
	longitude float64
	endpoint  string
	client    *http.Client
}

type OpenMeteoConfig struct {
	Latitude  float64
	Longitude float64
	Timeout   time.Duration
	Endpoint  string
}

func NewOpenMeteoClient(cfg OpenMeteoConfig) *OpenMeteoClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openMeteoForecastURL
	}
	return &OpenMeteoClient{
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		endpoint:  endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type openMeteoResponse struct {
	Timezone string `json:"timezone"`
	Daily    struct {
		Sunrise []string `json:"sunrise"`
		Sunset  []string `json:"sunset"`
	} `json:"daily"`
}

func (c *OpenMeteoClient) Name() string { return "openmeteo" }

func (c *OpenMeteoClient) Forecast(ctx context.Context) (*Forecast, error) {
	if c.latitude == 0 && c.longitude == 0 {
		return nil, fmt.Errorf("open-meteo location is empty")
	}

	query := url.Values{}
	query.Set("latitude", fmt.Sprintf("%.6f", c.latitude))
	query.Set("longitude", fmt.Sprintf("%.6f", c.longitude))
	query.Set("daily", "sunrise,sunset")
	query.Set("timezone", "auto")
	query.Set("forecast_days", "2")

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("open-meteo endpoint: %w", err)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("open-meteo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("open-meteo bad status: %s", resp.Status)
	}

	var payload openMeteoResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("open-meteo decode: %w", err)
	}

	return openMeteoDaily(payload)
}

func openMeteoDaily(payload openMeteoResponse) (*Forecast, error) {
	count := len(payload.Daily.Sunrise)
	if len(payload.Daily.Sunset) < count {
		count = len(payload.Daily.Sunset)
	}

	var out Forecast
	for i := 0; i < count; i++ {
		sunrise := parseOpenMeteoTime(payload.Daily.Sunrise[i], payload.Timezone)
		sunset := parseOpenMeteoTime(payload.Daily.Sunset[i], payload.Timezone)
		if sunrise.IsZero() || sunset.IsZero() {
			continue
		}
		phase := MoonPhaseAt(sunrise.Add(sunset.Sub(sunrise) / 2))
		out.Daily = append(out.Daily, DailyEntry{
			Sunrise:   sunrise.Unix(),
			Sunset:    sunset.Unix(),
			MoonPhase: &phase,
		})
	}
	if len(out.Daily) == 0 {
		return nil, ErrNoDailyEntries
	}
	return &out, nil
}

func parseOpenMeteoTime(value, timezone string) time.Time {
	loc := time.UTC
	if strings.TrimSpace(timezone) != "" {
		if parsed, err := time.LoadLocation(timezone); err == nil {
			loc = parsed
		}
	}

	if t, err := time.ParseInLocation("2006-01-02T15:04", value, loc); err == nil {
		return t
	}
	if t, err := time.ParseInLocation(time.RFC3339, value, loc); err == nil {
		return t
	}
	return time.Time{}
}
