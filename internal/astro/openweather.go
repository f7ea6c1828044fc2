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

const openWeatherOneCallURL = "https://api.openweathermap.org/data/3.0/onecall"

type OpenWeatherClient struct {
	apiKey    string
	latitude  float64
	longitude float64
	units     string
	endpoint  string
	client    *http.Client
}

type OpenWeatherConfig struct {
	APIKey    string
	Latitude  float64
	Longitude float64
	Units     string
	Timeout   time.Duration
	// Endpoint overrides the One Call URL; tests point it at httptest.
	Endpoint string
}

func NewOpenWeatherClient(cfg OpenWeatherConfig) *OpenWeatherClient {
	units := cfg.Units
	if units == "" {
		units = "metric"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = openWeatherOneCallURL
	}
	return &OpenWeatherClient{
		apiKey:    cfg.APIKey,
		latitude:  cfg.Latitude,
		longitude: cfg.Longitude,
		units:     units,
		endpoint:  endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenWeatherClient) Name() string { return "openweather" }

func (c *OpenWeatherClient) Forecast(ctx context.Context) (*Forecast, error) {
	if strings.TrimSpace(c.apiKey) == "" || (c.latitude == 0 && c.longitude == 0) {
		return nil, ErrMissingCredentials
	}

	query := url.Values{}
	query.Set("lat", fmt.Sprintf("%.6f", c.latitude))
	query.Set("lon", fmt.Sprintf("%.6f", c.longitude))
	query.Set("exclude", "minutely,hourly,alerts")
	query.Set("appid", c.apiKey)
	query.Set("units", c.units)

	endpoint, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("openweather endpoint: %w", err)
	}
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("openweather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openweather bad status: %s", resp.Status)
	}

	var payload Forecast
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("openweather decode: %w", err)
	}
	if len(payload.Daily) == 0 {
		return nil, ErrNoDailyEntries
	}

	return &payload, nil
}
